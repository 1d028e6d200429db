package telegram

import (
	"context"
	"errors"
	"kelink/internal/ports"
	"kelink/internal/types"
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRPC struct {
	sent           []*tg.MessagesSendMessageRequest
	deleted        []*tg.MessagesDeleteMessagesRequest
	channelDeleted []*tg.ChannelsDeleteMessagesRequest
	reply          func(req *tg.MessagesSendMessageRequest) tg.UpdatesClass
	err            error
}

func (f *fakeRPC) MessagesSendMessage(_ context.Context, req *tg.MessagesSendMessageRequest) (tg.UpdatesClass, error) {
	f.sent = append(f.sent, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.reply != nil {
		return f.reply(req), nil
	}
	return &tg.UpdateShortSentMessage{ID: 900}, nil
}

func (f *fakeRPC) MessagesDeleteMessages(_ context.Context, req *tg.MessagesDeleteMessagesRequest) (*tg.MessagesAffectedMessages, error) {
	f.deleted = append(f.deleted, req)
	return &tg.MessagesAffectedMessages{}, f.err
}

func (f *fakeRPC) ChannelsDeleteMessages(_ context.Context, req *tg.ChannelsDeleteMessagesRequest) (*tg.MessagesAffectedMessages, error) {
	f.channelDeleted = append(f.channelDeleted, req)
	return &tg.MessagesAffectedMessages{}, f.err
}

func newTestMessenger() (*Messenger, *fakeRPC) {
	peers := newPeerCache()
	peers.remember(tg.Entities{
		Users:    map[int64]*tg.User{42: {ID: 42, AccessHash: 4242, FirstName: "Ann"}},
		Channels: map[int64]*tg.Channel{55: {ID: 55, AccessHash: 5555}},
	})
	api := &fakeRPC{}
	return newMessenger(api, peers), api
}

func TestSendRepostWithButtonAndMention(t *testing.T) {
	m, api := newTestMessenger()
	id, err := m.Send(context.Background(), ports.OutboundMessage{
		ChatID:        "-10055",
		Text:          "🔗 Ann shared a link (1/3 today)",
		Mention:       "Ann",
		MentionUserID: "42",
		ButtonText:    "Open link 🔗",
		ButtonURL:     "https://example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "900", id)

	require.Len(t, api.sent, 1)
	req := api.sent[0]
	assert.Equal(t, &tg.InputPeerChannel{ChannelID: 55, AccessHash: 5555}, req.Peer)
	assert.Equal(t, &tg.ReplyInlineMarkup{Rows: []tg.KeyboardButtonRow{{
		Buttons: []tg.KeyboardButtonClass{&tg.KeyboardButtonURL{Text: "Open link 🔗", URL: "https://example.com"}},
	}}}, req.ReplyMarkup)
	// The link emoji is one rune but two UTF-16 units, plus the space.
	assert.Equal(t, []tg.MessageEntityClass{&tg.InputMessageEntityMentionName{
		Offset: 3,
		Length: 3,
		UserID: &tg.InputUser{UserID: 42, AccessHash: 4242},
	}}, req.Entities)
}

func TestSendFindsIDByRandomID(t *testing.T) {
	m, api := newTestMessenger()
	api.reply = func(req *tg.MessagesSendMessageRequest) tg.UpdatesClass {
		return &tg.Updates{Updates: []tg.UpdateClass{
			&tg.UpdateMessageID{ID: 1, RandomID: req.RandomID + 1},
			&tg.UpdateMessageID{ID: 321, RandomID: req.RandomID},
		}}
	}
	id, err := m.Send(context.Background(), ports.OutboundMessage{ChatID: "-10055", Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "321", id)
	assert.Nil(t, api.sent[0].ReplyMarkup)
	assert.Empty(t, api.sent[0].Entities)
}

func TestSendUnknownChat(t *testing.T) {
	m, api := newTestMessenger()
	_, err := m.Send(context.Background(), ports.OutboundMessage{ChatID: "-100999", Text: "x"})
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Empty(t, api.sent)
}

func TestNotifyAndDelete(t *testing.T) {
	m, api := newTestMessenger()
	ctx := context.Background()

	require.NoError(t, m.Notify(ctx, "42", "🚫"))
	assert.Equal(t, &tg.InputPeerUser{UserID: 42, AccessHash: 4242}, api.sent[0].Peer)
	assert.ErrorIs(t, m.Notify(ctx, "43", "🚫"), types.ErrNotFound)

	require.NoError(t, m.Delete(ctx, "-10055", "77"))
	assert.Equal(t, &tg.InputChannel{ChannelID: 55, AccessHash: 5555}, api.channelDeleted[0].Channel)
	assert.Equal(t, []int{77}, api.channelDeleted[0].ID)

	// Basic groups resolve without a cached peer.
	require.NoError(t, m.Delete(ctx, "-9", "78"))
	assert.Equal(t, []int{78}, api.deleted[0].ID)
	assert.True(t, api.deleted[0].Revoke)

	assert.ErrorIs(t, m.Delete(ctx, "-9", "x"), types.ErrMalformedEvent)
}

func TestTransportErrorsAreReturned(t *testing.T) {
	m, api := newTestMessenger()
	api.err = errors.New("FLOOD_WAIT")
	_, err := m.Send(context.Background(), ports.OutboundMessage{ChatID: "42", Text: "x"})
	assert.ErrorContains(t, err, "FLOOD_WAIT")
	assert.ErrorContains(t, m.Delete(context.Background(), "-10055", "1"), "FLOOD_WAIT")
}

func TestSentMessageIDMissing(t *testing.T) {
	_, err := sentMessageID(&tg.UpdatesTooLong{}, 1)
	assert.Error(t, err)

	id, err := sentMessageID(&tg.Updates{Updates: []tg.UpdateClass{
		&tg.UpdateNewChannelMessage{Message: &tg.Message{ID: 12}},
	}}, 1)
	require.NoError(t, err)
	assert.Equal(t, 12, id)
}
