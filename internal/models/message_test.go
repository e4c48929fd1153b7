package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseTriggerKind(t *testing.T) {
	tests := []struct {
		in   string
		want TriggerKind
	}{
		{"", TriggerImmediate},
		{"immediate", TriggerImmediate},
		{" Immediate ", TriggerImmediate},
		{"event", TriggerEvent},
		{"never", TriggerNever},
		{"push-later", TriggerNever},
	}
	for _, tt := range tests {
		if got := ParseTriggerKind(tt.in); got != tt.want {
			t.Fatalf("ParseTriggerKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMessageDecodeNormalizes(t *testing.T) {
	var m Message
	data := `{"messageId":" m1 ","priorityLevel":3,"trigger":"geo-fence","saveToInbox":true,"content":{"title":"Hi"}}`
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	m.Normalize()

	if m.ID != "m1" {
		t.Fatalf("expected trimmed id, got %q", m.ID)
	}
	if m.Trigger != TriggerNever {
		t.Fatalf("expected unknown trigger to decode as never, got %q", m.Trigger)
	}
	if m.Title() != "Hi" {
		t.Fatalf("expected title Hi, got %q", m.Title())
	}

	var empty Message
	if err := json.Unmarshal([]byte(`{"messageId":"m2"}`), &empty); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	empty.Normalize()
	if empty.Trigger != TriggerImmediate {
		t.Fatalf("expected missing trigger to default to immediate, got %q", empty.Trigger)
	}
}

func TestTriggerKindUnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    TriggerKind
		wantErr bool
	}{
		{`"event"`, TriggerEvent, false},
		{`{"type":"immediate"}`, TriggerImmediate, false},
		{`{"type":"never","delay":5}`, TriggerNever, false},
		{`{"type":"location"}`, TriggerNever, false},
		{`{}`, TriggerImmediate, false},
		{`42`, "", true},
		{`["immediate"]`, "", true},
	}
	for _, tt := range tests {
		var k TriggerKind
		err := json.Unmarshal([]byte(tt.in), &k)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error, got %q", tt.in, k)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.in, err)
		}
		if k != tt.want {
			t.Fatalf("%s: got %q, want %q", tt.in, k, tt.want)
		}
	}
}

func TestMessageDecodeFractionalPriority(t *testing.T) {
	var m Message
	if err := json.Unmarshal([]byte(`{"messageId":"m","priorityLevel":300.5,"trigger":{"type":"event"}}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Priority != 300.5 || m.Trigger != TriggerEvent {
		t.Fatalf("decoded priority %v trigger %q", m.Priority, m.Trigger)
	}
}

func TestMessageExpired(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Second)
	after := now.Add(time.Second)

	tests := []struct {
		name    string
		expires *time.Time
		want    bool
	}{
		{"no expiry", nil, false},
		{"past", &before, true},
		{"exactly now", &now, true},
		{"future", &after, false},
	}
	for _, tt := range tests {
		m := &Message{ID: "m", ExpiresAt: tt.expires}
		if got := m.Expired(now); got != tt.want {
			t.Fatalf("%s: Expired = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMessageCloneIsDeep(t *testing.T) {
	expires := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	orig := &Message{ID: "m", ExpiresAt: &expires, Content: json.RawMessage(`{"title":"a"}`)}

	clone := orig.Clone()
	*clone.ExpiresAt = clone.ExpiresAt.Add(time.Hour)
	clone.Content[2] = 'X'
	clone.Read = true

	if !orig.ExpiresAt.Equal(expires) {
		t.Fatal("clone shares ExpiresAt with the original")
	}
	if string(orig.Content) != `{"title":"a"}` {
		t.Fatalf("clone shares Content with the original: %s", orig.Content)
	}
	if orig.Read {
		t.Fatal("clone shares flags with the original")
	}
	if (*Message)(nil).Clone() != nil {
		t.Fatal("expected nil clone of nil message")
	}
}

func TestMessageValidate(t *testing.T) {
	valid := &Message{ID: "m", Trigger: TriggerImmediate, Consumed: true, DidProcessTrigger: true}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := (&Message{Trigger: "bogus", Consumed: true}).Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrMessageIDRequired) || !errors.Is(err, ErrConsumedUntriggered) {
		t.Fatalf("expected id and consumed errors, got %v", err)
	}
	var list *ValidationErrors
	if !errors.As(err, &list) || len(list.Errors) != 3 {
		t.Fatalf("expected 3 validation errors, got %v", err)
	}
}

func TestContentFieldsIgnoresNonObjects(t *testing.T) {
	for _, content := range []string{"", `"text"`, `[1,2]`, `{bad`} {
		m := &Message{ID: "m", Content: json.RawMessage(content)}
		if fields := m.ContentFields(); fields != nil {
			t.Fatalf("content %q: expected nil fields, got %v", content, fields)
		}
		if m.Title() != "" {
			t.Fatalf("content %q: expected empty title", content)
		}
	}

	m := &Message{ID: "m", Content: json.RawMessage(`{"subject":"S","name":"N"}`)}
	if m.Title() != "S" {
		t.Fatalf("expected subject to win over name, got %q", m.Title())
	}
}

func TestContextForCarriesInboxSession(t *testing.T) {
	m := &Message{ID: "m", SaveToInbox: true, SilentInbox: true}
	mc := ContextFor(m, LocationInbox, "sess-1")
	want := MessageContext{MessageID: "m", SaveToInbox: true, SilentInbox: true, Location: LocationInbox, InboxSessionID: "sess-1"}
	if mc != want {
		t.Fatalf("ContextFor = %+v, want %+v", mc, want)
	}
}
