package inapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/inapp/internal/models"
	"github.com/tOgg1/inapp/internal/testutil"
)

const samplePayload = `{"inAppMessages":[
	{"messageId":"m1","priorityLevel":2,"saveToInbox":true,"trigger":"immediate","content":{"title":"one"}},
	{"messageId":"  ","priorityLevel":1},
	{"messageId":"m2","priorityLevel":1,"trigger":"push-later"},
	{"messageId":"m3"}
]}`

func TestDecodePayloadNormalizesAndDropsInvalid(t *testing.T) {
	messages, err := DecodePayload(strings.NewReader(samplePayload), 0, zerolog.Nop())
	require.NoError(t, err)

	require.Equal(t, []string{"m1", "m2", "m3"}, ids(messages))
	assert.Equal(t, models.TriggerImmediate, messages[0].Trigger)
	assert.True(t, messages[0].SaveToInbox)
	assert.JSONEq(t, `{"title":"one"}`, string(messages[0].Content))
	assert.Equal(t, models.TriggerNever, messages[1].Trigger)
	assert.Equal(t, models.TriggerImmediate, messages[2].Trigger)
}

func TestDecodePayloadCapsCount(t *testing.T) {
	messages, err := DecodePayload(strings.NewReader(samplePayload), 2, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, ids(messages))
}

func TestDecodePayloadAcceptsFractionalPriorityAndTriggerObjects(t *testing.T) {
	payload := `{"inAppMessages":[
		{"messageId":"frac","priorityLevel":300.5,"trigger":{"type":"immediate"}},
		{"messageId":"event","priorityLevel":100,"trigger":{"type":"event"}},
		{"messageId":"unknown","trigger":{"type":"geofence"}},
		{"messageId":"untyped","trigger":{}}
	]}`

	messages, err := DecodePayload(strings.NewReader(payload), 0, zerolog.Nop())
	require.NoError(t, err)

	require.Equal(t, []string{"frac", "event", "unknown", "untyped"}, ids(messages))
	assert.Equal(t, 300.5, messages[0].Priority)
	assert.Equal(t, models.TriggerImmediate, messages[0].Trigger)
	assert.Equal(t, models.TriggerEvent, messages[1].Trigger)
	assert.Equal(t, models.TriggerNever, messages[2].Trigger)
	assert.Equal(t, models.TriggerImmediate, messages[3].Trigger)
}

func TestDecodePayloadDropsUndecodableEntries(t *testing.T) {
	payload := `{"inAppMessages":[
		{"messageId":"good","priorityLevel":1},
		{"messageId":"bad-priority","priorityLevel":"high"},
		{"messageId":"bad-trigger","trigger":42},
		"not an object",
		null,
		{"messageId":"also-good","saveToInbox":true}
	]}`

	messages, err := DecodePayload(strings.NewReader(payload), 0, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"good", "also-good"}, ids(messages))
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	_, err := DecodePayload(strings.NewReader(`{"inAppMessages":`), 0, zerolog.Nop())
	require.Error(t, err)
}

func TestFileFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(samplePayload), 0o644))

	messages, err := NewFileFetcher(path, 0).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, messages, 3)

	_, err = NewFileFetcher(filepath.Join(t.TempDir(), "missing.json"), 0).Fetch(context.Background())
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestHTTPFetcher(t *testing.T) {
	testutil.SkipIfNoNetwork(t)
	var gotKey, gotCount, gotEmail, gotPlatform string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Api-Key")
		gotCount = r.URL.Query().Get("count")
		gotEmail = r.URL.Query().Get("email")
		gotPlatform = r.URL.Query().Get("platform")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, samplePayload)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.URL+"/inApp/getMessages?platform=go", "secret-key", 5, time.Second)
	fetcher.Email = "user@example.com"
	messages, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)

	assert.Len(t, messages, 3)
	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "5", gotCount)
	assert.Equal(t, "user@example.com", gotEmail)
	assert.Equal(t, "go", gotPlatform)
}

func TestHTTPFetcherStatusError(t *testing.T) {
	testutil.SkipIfNoNetwork(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewHTTPFetcher(server.URL, "", 0, time.Second).Fetch(context.Background())
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "401")
}
