package notify

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	slackapi "github.com/slack-go/slack"
)

func TestNotice_String(t *testing.T) {
	tests := []struct {
		n    Notice
		want string
	}{
		{Notice{Title: "Save failed", Body: "timeout", Severity: Error}, "[error] Save failed: timeout"},
		{Notice{Title: "Offline"}, "[error] Offline"},
		{Notice{Title: "Stale", Severity: Warning}, "[warning] Stale"},
	}
	for _, tt := range tests {
		if got := tt.n.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	if err := c.Notify(context.Background(), Notice{Title: "A", Body: "b"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Notify(context.Background(), Notice{Title: "C"}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[0] != "[error] A: b" {
		t.Errorf("console output = %q", buf.String())
	}
}

type failingNotifier struct{ err error }

func (f failingNotifier) Notify(context.Context, Notice) error { return f.err }

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	rec1, rec2 := &Recorder{}, &Recorder{}
	boom := errors.New("boom")
	m := Multi{rec1, failingNotifier{boom}, nil, rec2}

	err := m.Notify(context.Background(), Notice{Title: "x"})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if len(rec1.Notices()) != 1 || len(rec2.Notices()) != 1 {
		t.Errorf("recorders got %d and %d notices, want 1 each", len(rec1.Notices()), len(rec2.Notices()))
	}
}

func TestRecorder_Reset(t *testing.T) {
	r := &Recorder{}
	_ = r.Notify(context.Background(), Notice{Title: "x"})
	r.Reset()
	if len(r.Notices()) != 0 {
		t.Error("Reset did not clear notices")
	}
}

type mockSlack struct {
	calls   int
	channel string
	errs    []error
}

func (m *mockSlack) PostMessageContext(_ context.Context, channelID string, _ ...slackapi.MsgOption) (string, string, error) {
	m.calls++
	m.channel = channelID
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return "", "", err
	}
	return channelID, "123.456", nil
}

func TestNewSlack_Validation(t *testing.T) {
	if _, err := NewSlack(SlackOpts{ChannelID: "C1"}); err == nil {
		t.Error("expected error without token")
	}
	if _, err := NewSlack(SlackOpts{Client: &mockSlack{}}); err == nil {
		t.Error("expected error without channel")
	}
}

func TestSlack_Notify(t *testing.T) {
	m := &mockSlack{}
	s, err := NewSlack(SlackOpts{Client: m, ChannelID: "C1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Notify(context.Background(), Notice{Title: "t"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if m.calls != 1 || m.channel != "C1" {
		t.Errorf("calls=%d channel=%q", m.calls, m.channel)
	}
}

func TestSlack_RetriesOnRateLimit(t *testing.T) {
	m := &mockSlack{errs: []error{&slackapi.RateLimitedError{RetryAfter: time.Millisecond}}}
	s, _ := NewSlack(SlackOpts{Client: m, ChannelID: "C1"})
	if err := s.Notify(context.Background(), Notice{Title: "t"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if m.calls != 2 {
		t.Errorf("calls = %d, want 2", m.calls)
	}
}

func TestSlack_NoRetryOnOtherErrors(t *testing.T) {
	m := &mockSlack{errs: []error{errors.New("channel_not_found")}}
	s, _ := NewSlack(SlackOpts{Client: m, ChannelID: "C1"})
	if err := s.Notify(context.Background(), Notice{Title: "t"}); err == nil {
		t.Fatal("expected error")
	}
	if m.calls != 1 {
		t.Errorf("calls = %d, want 1", m.calls)
	}
}

type mockDiscord struct {
	calls int
	embed *discordgo.MessageEmbed
	errs  []error
}

func (m *mockDiscord) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.calls++
	m.embed = embed
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	return &discordgo.Message{ChannelID: channelID}, nil
}

func TestDiscord_Notify(t *testing.T) {
	m := &mockDiscord{}
	d, err := NewDiscord(DiscordOpts{Session: m, ChannelID: "123"})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Notify(context.Background(), Notice{Title: "Save failed", Body: "x", Severity: Error}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if m.embed == nil || m.embed.Title != "Save failed" || m.embed.Color != 0xd00000 {
		t.Errorf("embed = %+v", m.embed)
	}
}

func TestDiscord_RetriesOn429(t *testing.T) {
	rateLimited := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusTooManyRequests, Status: "429"}}
	m := &mockDiscord{errs: []error{rateLimited}}
	d, _ := NewDiscord(DiscordOpts{Session: m, ChannelID: "123"})
	d.baseBackoff = time.Millisecond
	if err := d.Notify(context.Background(), Notice{Title: "t"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if m.calls != 2 {
		t.Errorf("calls = %d, want 2", m.calls)
	}
}

func TestDiscord_GivesUpAfterMaxRetries(t *testing.T) {
	rateLimited := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusTooManyRequests, Status: "429"}}
	m := &mockDiscord{errs: []error{rateLimited, rateLimited, rateLimited, rateLimited, rateLimited}}
	d, _ := NewDiscord(DiscordOpts{Session: m, ChannelID: "123"})
	d.baseBackoff = time.Millisecond
	if err := d.Notify(context.Background(), Notice{Title: "t"}); err == nil {
		t.Fatal("expected error")
	}
	if m.calls != maxRetries+1 {
		t.Errorf("calls = %d, want %d", m.calls, maxRetries+1)
	}
}

func TestRetryOnRateLimit_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	limited := func(error) (time.Duration, bool) { return time.Hour, true }
	err := retryOnRateLimit(ctx, time.Millisecond, limited, func() error { return errors.New("429") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestParseHexColor(t *testing.T) {
	if got := parseHexColor("#36a64f"); got != 0x36a64f {
		t.Errorf("parseHexColor = %x", got)
	}
	if got := parseHexColor("zz"); got != 0 {
		t.Errorf("parseHexColor(invalid) = %d", got)
	}
}
