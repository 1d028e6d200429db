package flow

import (
	"kelink/internal/types"

	"github.com/goccy/go-json"
)

func (s *UnitTestSuite) decode(body string) map[string]any {
	var payload map[string]any
	s.Require().NoError(json.Unmarshal([]byte(body), &payload))
	return payload
}

func (s *UnitTestSuite) TestParseUpdateLink() {
	ev, err := ParseUpdate(types.DefaultIngress(), s.decode(`{
		"update_id": 9001,
		"message": {
			"message_id": 77,
			"from": {"id": 42, "first_name": "Ann"},
			"chat": {"id": -1001234567890},
			"text": "read https://example.com/x"
		}
	}`), s.now)
	s.NoError(err)
	s.Equal(&types.LinkEvent{
		UpdateID:    "9001",
		UserID:      "42",
		DisplayName: "Ann",
		ChatID:      "-1001234567890",
		MessageID:   "77",
		Text:        "read https://example.com/x",
		At:          s.now,
	}, ev)
}

func (s *UnitTestSuite) TestParseUpdateReplyWinsOverLink() {
	ev, err := ParseUpdate(types.DefaultIngress(), s.decode(`{
		"update_id": 1,
		"message": {
			"message_id": 78,
			"from": {"id": 43},
			"chat": {"id": -100},
			"text": "nice one https://example.com/y",
			"reply_to_message": {"message_id": 501}
		}
	}`), s.now)
	s.NoError(err)
	s.Equal(&types.ReplyEvent{UpdateID: "1", ChatID: "-100", ReplyToID: "501", UserID: "43"}, ev)
}

func (s *UnitTestSuite) TestParseUpdateReaction() {
	ev, err := ParseUpdate(types.DefaultIngress(), s.decode(`{
		"update_id": 2,
		"message_reaction": {
			"chat": {"id": -100},
			"message_id": 501,
			"user": {"id": 44},
			"new_reaction": [{"type": "emoji", "emoji": "👍"}]
		}
	}`), s.now)
	s.NoError(err)
	s.Equal(&types.ReactionEvent{UpdateID: "2", ChatID: "-100", MessageID: "501", UserID: "44"}, ev)
}

func (s *UnitTestSuite) TestParseUpdateForumTopicLink() {
	ev, err := ParseUpdate(types.DefaultIngress(), s.decode(`{
		"update_id": 5,
		"message": {
			"message_id": 80,
			"message_thread_id": 10,
			"is_topic_message": true,
			"from": {"id": 45},
			"chat": {"id": -100},
			"text": "https://example.com/x",
			"reply_to_message": {"message_id": 10, "forum_topic_created": {"name": "links"}}
		}
	}`), s.now)
	s.NoError(err)
	link, ok := ev.(*types.LinkEvent)
	s.Require().True(ok, "got %T", ev)
	s.Equal("80", link.MessageID)

	// Without a thread id the topic-creation marker alone identifies the root.
	ev, err = ParseUpdate(types.DefaultIngress(), s.decode(`{
		"update_id": 6,
		"message": {
			"message_id": 81,
			"is_topic_message": true,
			"from": {"id": 45},
			"chat": {"id": -100},
			"text": "https://example.com/x",
			"reply_to_message": {"message_id": 10, "forum_topic_created": {}}
		}
	}`), s.now)
	s.NoError(err)
	s.IsType(&types.LinkEvent{}, ev)
}

func (s *UnitTestSuite) TestParseUpdateForumTopicReply() {
	ev, err := ParseUpdate(types.DefaultIngress(), s.decode(`{
		"update_id": 7,
		"message": {
			"message_id": 82,
			"message_thread_id": 10,
			"is_topic_message": true,
			"from": {"id": 46},
			"chat": {"id": -100},
			"text": "https://example.com/y",
			"reply_to_message": {"message_id": 55, "message_thread_id": 10, "is_topic_message": true}
		}
	}`), s.now)
	s.NoError(err)
	s.Equal(&types.ReplyEvent{UpdateID: "7", ChatID: "-100", ReplyToID: "55", UserID: "46"}, ev)
}

func (s *UnitTestSuite) TestParseUpdateIgnoresRemovedReaction() {
	ev, err := ParseUpdate(types.DefaultIngress(), s.decode(`{
		"update_id": 8,
		"message_reaction": {
			"chat": {"id": -100},
			"message_id": 501,
			"user": {"id": 44},
			"old_reaction": [{"type": "emoji", "emoji": "👍"}],
			"new_reaction": []
		}
	}`), s.now)
	s.NoError(err)
	s.Nil(ev)
}

func (s *UnitTestSuite) TestParseUpdateIgnoresPlainText() {
	ev, err := ParseUpdate(types.DefaultIngress(), s.decode(`{
		"update_id": 3,
		"message": {"message_id": 1, "from": {"id": 1}, "chat": {"id": 1}, "text": "hello"}
	}`), s.now)
	s.NoError(err)
	s.Nil(ev)
}

func (s *UnitTestSuite) TestParseUpdateMalformed() {
	_, err := ParseUpdate(types.DefaultIngress(), s.decode(`{
		"update_id": 4,
		"message": {"message_id": 1, "chat": {"id": 1}, "text": "https://example.com"}
	}`), s.now)
	s.ErrorIs(err, types.ErrMalformedEvent)

	_, err = ParseUpdate(types.DefaultIngress(), s.decode(`{
		"message_reaction": {"chat": {"id": 1}, "user": {"id": 2}}
	}`), s.now)
	s.ErrorIs(err, types.ErrMalformedEvent)

	ing := types.DefaultIngress()
	ing.Text = "message.["
	_, err = ParseUpdate(ing, s.decode(`{"message": {"text": "x"}}`), s.now)
	s.ErrorIs(err, types.ErrMalformedEvent)
}

func (s *UnitTestSuite) TestParseUpdateCustomExpressions() {
	ing := types.DefaultIngress()
	ing.UserID = "sender"
	ing.ChatID = "room"
	ing.MessageID = "id"
	ing.Text = "body"
	ing.DisplayName = "nick"
	ing.UpdateID = "id"
	ev, err := ParseUpdate(ing, s.decode(`{"sender": "u-1", "room": "r-1", "id": "m-1", "nick": "N", "body": "HTTPS://EXAMPLE.COM"}`), s.now)
	s.NoError(err)
	link, ok := ev.(*types.LinkEvent)
	s.Require().True(ok)
	s.Equal("u-1", link.UserID)
	s.Equal("r-1", link.ChatID)
	s.Equal("m-1", link.MessageID)
}
