package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ScoutSync/internal/domain/models"
	"ScoutSync/internal/domain/service"
	applogger "ScoutSync/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(status models.Status, msg string, unresolved ...string) *models.ReconciliationResult {
	res := &models.ReconciliationResult{RunID: "r1", File: "PX_USD.xlsx", Status: status, Message: msg}
	for _, u := range unresolved {
		res.AddUnresolved(u)
	}
	return res
}

func TestBodyWithoutUnresolved(t *testing.T) {
	assert.Equal(t, models.MessageComplete, Body(result(models.StatusOK, models.MessageComplete)))
}

func TestBodyListsUnresolved(t *testing.T) {
	got := Body(result(models.StatusOK, models.MessageComplete, "ZZZ", "YYY"))
	want := "The following stock names were not found in the database:\n\nZZZ\nYYY\nData processing complete."
	assert.Equal(t, want, got)
}

func TestMultiTriesEveryChannel(t *testing.T) {
	var calls []string
	m := NewMulti(applogger.Nop()).
		Add("broken", service.NotifierFunc(func(context.Context, *models.ReconciliationResult) error {
			calls = append(calls, "broken")
			return errors.New("boom")
		})).
		Add("log", service.NotifierFunc(func(context.Context, *models.ReconciliationResult) error {
			calls = append(calls, "log")
			return nil
		}))

	err := m.Notify(context.Background(), result(models.StatusFailed, "An error occurred: x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: boom")
	assert.Equal(t, []string{"broken", "log"}, calls)
	assert.Equal(t, 2, m.Len())
}

type capturePublisher struct {
	topic string
	key   []byte
	value interface{}
}

func (p *capturePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.topic, p.key, p.value = topic, key, value
	return nil
}

func TestKafkaNotifierKeysByFile(t *testing.T) {
	pub := &capturePublisher{}
	n := NewKafkaNotifier(pub, "scoutsync.results")

	require.NoError(t, n.Notify(context.Background(), result(models.StatusOK, models.MessageComplete, "ZZZ")))
	assert.Equal(t, "scoutsync.results", pub.topic)
	assert.Equal(t, "PX_USD.xlsx", string(pub.key))

	raw, err := json.Marshal(pub.value)
	require.NoError(t, err)
	var ev map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, "PX_USD.xlsx", ev["file"])
	assert.Equal(t, Subject, ev["subject"])
	assert.Equal(t, []interface{}{"ZZZ"}, ev["unresolved"])
}

func TestMailgunNotifierSends(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/mg.example.com/messages"), r.URL.Path)
		form = map[string]string{
			"subject": r.FormValue("subject"),
			"text":    r.FormValue("text"),
			"to":      r.FormValue("to"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"<1@mg.example.com>","message":"Queued. Thank you."}`))
	}))
	defer srv.Close()

	n, err := NewMailgunNotifier(MailgunConfig{
		Domain:  "mg.example.com",
		APIKey:  "key-test",
		BaseURL: srv.URL + "/v3",
		From:    "ScoutSync <noreply@example.com>",
		To:      []string{"ops@example.com"},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), result(models.StatusMetadataNotFound, "Error: PX_USD.xlsx metadata not found")))
	assert.Equal(t, Subject, form["subject"])
	assert.Equal(t, "Error: PX_USD.xlsx metadata not found", form["text"])
	assert.Equal(t, "ops@example.com", form["to"])
}

func TestMailgunNotifierRequiresConfig(t *testing.T) {
	_, err := NewMailgunNotifier(MailgunConfig{Domain: "mg.example.com"}, nil)
	assert.Error(t, err)
}

func TestLogNotifierWritesOutcome(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(applogger.NewWithWriter(&buf, zerolog.DebugLevel))

	require.NoError(t, n.Notify(context.Background(), result(models.StatusOK, models.MessageComplete, "ZZZ")))
	assert.Contains(t, buf.String(), models.MessageComplete)
	assert.Contains(t, buf.String(), "ZZZ")
}
