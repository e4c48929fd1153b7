package models

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidateMessagesReportsIndexAndID(t *testing.T) {
	messages := []*Message{
		{ID: "m1", Trigger: TriggerImmediate},
		{ID: "", Trigger: TriggerImmediate},
		{ID: "m3", Trigger: TriggerNever, Consumed: true},
		{ID: "m1", Trigger: TriggerImmediate},
		nil,
	}

	err := ValidateMessages(messages)
	if err == nil {
		t.Fatal("expected error")
	}

	var list *ValidationErrors
	if !errors.As(err, &list) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	want := []string{
		"messages[1].messageId: message id is required",
		"messages[2].consumed: consumed requires didProcessTrigger",
		"messages[3].messageId: duplicate message id: first seen at messages[0]",
		"messages[4]: message is nil",
	}
	got := make([]string, 0, len(list.Errors))
	for _, e := range list.Errors {
		got = append(got, e.Error())
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("errors = %q, want %q", got, want)
	}
	if list.Errors[1].MessageID != "m3" {
		t.Fatalf("expected message id m3, got %q", list.Errors[1].MessageID)
	}

	for _, target := range []error{ErrMessageIDRequired, ErrConsumedUntriggered, ErrDuplicateMessage, ErrNilMessage} {
		if !errors.Is(err, target) {
			t.Fatalf("expected errors.Is to match %v", target)
		}
	}
	if errors.Is(err, ErrUnknownTrigger) {
		t.Fatal("did not expect an unknown trigger error")
	}
}

func TestValidateSingleMessageOmitsIndex(t *testing.T) {
	err := (&Message{ID: "m", Trigger: "geo"}).Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != `trigger: unknown trigger kind "geo"` {
		t.Fatalf("unexpected message: %v", err)
	}
	if !errors.Is(err, ErrUnknownTrigger) {
		t.Fatal("expected errors.Is to match ErrUnknownTrigger")
	}
}

func TestValidateMessagesOK(t *testing.T) {
	if err := ValidateMessages([]*Message{{ID: "a", Trigger: TriggerEvent}, {ID: "b", Trigger: TriggerNever}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateMessages(nil); err != nil {
		t.Fatalf("unexpected error for empty set: %v", err)
	}
}
