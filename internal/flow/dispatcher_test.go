package flow

import (
	"context"
	"errors"
	"kelink/internal/types"
	"time"
)

func (s *UnitTestSuite) TestAdmittedLinkIsRepostedWithButton() {
	ctx := context.Background()
	status, err := s.dispatcher.HandleLink(ctx, s.link("1", "42", "7", "look at this: https://example.com/a."))
	s.NoError(err)
	s.Equal(Admitted, status)

	s.Require().Len(s.messenger.sent, 1)
	msg := s.messenger.sent[0]
	s.Equal("-100", msg.ChatID)
	s.Equal("🔗 Name 42 shared a link (1/3 today)", msg.Text)
	s.Equal("Name 42", msg.Mention)
	s.Equal("42", msg.MentionUserID)
	s.Equal("Open link 🔗", msg.ButtonText)
	s.Equal("https://example.com/a", msg.ButtonURL)
	s.Equal([]string{"-100/7"}, s.messenger.deleted)
	s.Empty(s.messenger.notices)

	// The repost id is the post id in the ledger.
	poster, found, err := s.engine.Ledger().PosterOf(ctx, "501")
	s.NoError(err)
	s.True(found)
	s.Equal("42", poster)

	s.Require().Len(s.auditor.events, 1)
	s.Equal(types.AuditEvent{
		Type:    "link",
		Scope:   "flowtest",
		UserID:  "42",
		ChatID:  "-100",
		Outcome: "admitted",
		PostID:  "501",
		Count:   1,
		At:      s.now.Unix(),
	}, s.auditor.events[0])
	s.Equal("look at this: https://example.com/a.", s.auditor.originals[0])
}

func (s *UnitTestSuite) TestReciprocityRejectionSendsNotice() {
	ctx := context.Background()
	_, err := s.dispatcher.HandleLink(ctx, s.link("1", "u1", "7", "https://a.example"))
	s.Require().NoError(err)

	status, err := s.dispatcher.HandleLink(ctx, s.link("2", "u2", "8", "https://b.example"))
	s.NoError(err)
	s.Equal(RejectedReciprocity, status)
	s.Len(s.messenger.sent, 1)
	s.Equal([]string{"-100/7", "-100/8"}, s.messenger.deleted)
	s.Equal([]string{"👀 Before sharing, please react or reply to every link posted in the last 12 hours."}, s.messenger.notices["u2"])
	s.Equal("rejected_reciprocity", s.auditor.events[1].Outcome)

	// A reaction on the repost clears the obligation.
	status, err = s.dispatcher.HandleReaction(ctx, types.ReactionEvent{UpdateID: "3", ChatID: "-100", MessageID: "501", UserID: "u2"})
	s.NoError(err)
	s.Equal(Recorded, status)

	status, err = s.dispatcher.HandleLink(ctx, s.link("4", "u2", "9", "https://b.example"))
	s.NoError(err)
	s.Equal(Admitted, status)
}

func (s *UnitTestSuite) TestReplyCountsAsAcknowledgement() {
	ctx := context.Background()
	_, err := s.dispatcher.HandleLink(ctx, s.link("1", "u1", "7", "https://a.example"))
	s.Require().NoError(err)

	status, err := s.dispatcher.Dispatch(ctx, &types.ReplyEvent{UpdateID: "2", ChatID: "-100", ReplyToID: "501", UserID: "u2"})
	s.NoError(err)
	s.Equal(Recorded, status)

	status, err = s.dispatcher.Dispatch(ctx, &types.LinkEvent{
		UpdateID: "3", UserID: "u2", ChatID: "-100", MessageID: "8", Text: "https://b.example",
	})
	s.NoError(err)
	s.Equal(Admitted, status)
	s.Equal("🔗 user u2 shared a link (1/3 today)", s.messenger.sent[1].Text)
}

func (s *UnitTestSuite) TestQuotaRejectionSendsNotice() {
	ctx := context.Background()
	for i, id := range []string{"1", "2", "3"} {
		status, err := s.dispatcher.HandleLink(ctx, s.link(id, "u1", id, "https://a.example"))
		s.Require().NoError(err)
		s.Equal(Admitted, status, "link %d", i+1)
	}
	s.Equal("🔗 Name u1 shared a link (3/3 today)", s.messenger.sent[2].Text)

	status, err := s.dispatcher.HandleLink(ctx, s.link("4", "u1", "4", "https://a.example"))
	s.NoError(err)
	s.Equal(RejectedQuota, status)
	s.Equal([]string{"🚫 You have already shared 3 links today. Try again after 00:00 UTC."}, s.messenger.notices["u1"])
	s.Len(s.messenger.deleted, 4)
}

func (s *UnitTestSuite) TestDuplicateUpdateIsSkipped() {
	ctx := context.Background()
	ev := s.link("1", "u1", "7", "https://a.example")
	status, err := s.dispatcher.HandleLink(ctx, ev)
	s.NoError(err)
	s.Equal(Admitted, status)

	status, err = s.dispatcher.HandleLink(ctx, ev)
	s.NoError(err)
	s.Equal(Duplicate, status)
	s.Len(s.messenger.sent, 1)

	count, err := s.engine.DailyCount(ctx, "u1", s.now)
	s.NoError(err)
	s.Equal(1, count)

	// Remembered for DedupTTL only.
	s.now = s.now.Add(DedupTTL + time.Second)
	ev.At = s.now
	status, err = s.dispatcher.HandleLink(ctx, ev)
	s.NoError(err)
	s.Equal(Admitted, status)
}

func (s *UnitTestSuite) TestNonLinkIsIgnored() {
	status, err := s.dispatcher.HandleLink(context.Background(), s.link("1", "u1", "7", "good morning"))
	s.NoError(err)
	s.Equal(Ignored, status)
	s.Empty(s.messenger.deleted)
	s.Empty(s.auditor.events)
}

func (s *UnitTestSuite) TestMalformedEventsAreDropped() {
	ctx := context.Background()
	_, err := s.dispatcher.HandleLink(ctx, s.link("1", "", "7", "https://a.example"))
	s.ErrorIs(err, types.ErrMalformedEvent)

	_, err = s.dispatcher.HandleReaction(ctx, types.ReactionEvent{UpdateID: "2", MessageID: "501"})
	s.ErrorIs(err, types.ErrMalformedEvent)

	_, err = s.dispatcher.HandleReply(ctx, types.ReplyEvent{UpdateID: "3", UserID: "u1"})
	s.ErrorIs(err, types.ErrMalformedEvent)

	_, err = s.dispatcher.Dispatch(ctx, "not an event")
	s.ErrorIs(err, types.ErrMalformedEvent)

	status, err := s.dispatcher.Dispatch(ctx, nil)
	s.NoError(err)
	s.Equal(Ignored, status)
	s.Empty(s.messenger.deleted)
}

func (s *UnitTestSuite) TestStoreFailureTakesNoChatAction() {
	ctx := context.Background()
	ev := s.link("1", "u1", "7", "https://a.example")
	s.mr.SetError("ERR store down")

	_, err := s.dispatcher.HandleLink(ctx, ev)
	s.ErrorIs(err, types.ErrStoreUnavailable)
	s.Empty(s.messenger.sent)
	s.Empty(s.messenger.deleted)
	s.Empty(s.messenger.notices)
	s.Empty(s.auditor.events)

	_, err = s.dispatcher.HandleReaction(ctx, types.ReactionEvent{UpdateID: "2", MessageID: "501", UserID: "u2"})
	s.ErrorIs(err, types.ErrStoreUnavailable)

	// The failed update was not remembered, so its re-delivery is processed.
	s.mr.SetError("")
	status, err := s.dispatcher.HandleLink(ctx, ev)
	s.NoError(err)
	s.Equal(Admitted, status)
}

func (s *UnitTestSuite) TestRepostFailureKeepsOriginal() {
	s.messenger.sendErr = errSend
	_, err := s.dispatcher.HandleLink(context.Background(), s.link("1", "u1", "7", "https://a.example"))
	s.True(errors.Is(err, errSend))
	s.Empty(s.messenger.deleted)

	count, err := s.engine.DailyCount(context.Background(), "u1", s.now)
	s.NoError(err)
	s.Equal(0, count)
}

func (s *UnitTestSuite) TestLedgerFailureRetractsRepost() {
	ctx := context.Background()
	ev := s.link("1", "u1", "7", "https://a.example")
	s.messenger.afterSend = func() { s.mr.SetError("ERR store down") }

	_, err := s.dispatcher.HandleLink(ctx, ev)
	s.ErrorIs(err, types.ErrStoreUnavailable)
	s.Len(s.messenger.sent, 1)
	s.Equal([]string{"-100/501"}, s.messenger.deleted, "repost removed, original kept")
	s.Empty(s.auditor.events)

	// The re-delivery posts the link exactly once more and is tracked this time.
	s.messenger.afterSend = nil
	s.mr.SetError("")
	status, err := s.dispatcher.HandleLink(ctx, ev)
	s.NoError(err)
	s.Equal(Admitted, status)
	s.Equal([]string{"-100/501", "-100/7"}, s.messenger.deleted)
	poster, found, err := s.engine.Ledger().PosterOf(ctx, "502")
	s.NoError(err)
	s.True(found)
	s.Equal("u1", poster)
}

func (s *UnitTestSuite) TestAuditFailureDoesNotChangeDecision() {
	s.auditor.err = errors.New("sns down")
	status, err := s.dispatcher.HandleLink(context.Background(), s.link("1", "u1", "7", "https://a.example"))
	s.NoError(err)
	s.Equal(Admitted, status)
}

func (s *UnitTestSuite) TestNoticeRendering() {
	vars := noticeVars{limit: 3, count: 2, reset: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), window: 90 * time.Minute, user: "Ann"}
	s.Equal("3 2 00:00 UTC 90 minutes Ann", vars.render("{limit} {count} {reset} {window} {user}"))
	s.Equal("1 hour", HumanWindow(time.Hour))
	s.Equal("12 hours", HumanWindow(12*time.Hour))
	s.Equal("45 seconds", HumanWindow(45*time.Second))
}
