package testfixtures

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/calendar-assistant/internal/application"
	"github.com/example/calendar-assistant/internal/persistence"
)

type recordingNotifier struct {
	mu      sync.Mutex
	replies []string
	created []application.EventRecord
	direct  []string
}

func (n *recordingNotifier) Reply(_ context.Context, _ application.MessageRef, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replies = append(n.replies, text)
	return nil
}

func (n *recordingNotifier) ReplyTransient(ctx context.Context, ref application.MessageRef, text string) error {
	return n.Reply(ctx, ref, text)
}

func (n *recordingNotifier) ReplyCreated(_ context.Context, _ application.MessageRef, record application.EventRecord, _ application.CreatedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, record)
	return nil
}

func (n *recordingNotifier) SendDirect(_ context.Context, userID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.direct = append(n.direct, userID+": "+text)
	return nil
}

type staticExtractor []application.EventRecord

func (e staticExtractor) Extract(context.Context, string) ([]application.EventRecord, error) {
	return e, nil
}

type staticProvider struct{}

func (staticProvider) AuthorizationURL(token string) string {
	return "https://accounts.example/auth?state=" + token
}

func (staticProvider) ExchangeCode(_ context.Context, code string) (string, error) {
	return CredentialBlob("user-1", ReferenceTime()), nil
}

type calendarStub struct{ created int }

func (c *calendarStub) ServiceHandle(context.Context, string) (application.CalendarService, string, error) {
	return c, "", nil
}

func (c *calendarStub) CreateEvent(_ context.Context, record application.EventRecord) (application.CreatedEvent, error) {
	c.created++
	return application.CreatedEvent{ID: "evt", Summary: record.Summary, Link: "https://calendar.example/evt"}, nil
}

func TestServiceFactory_NewAssistant(t *testing.T) {
	ctx := context.Background()
	factory := NewServiceFactory()
	store := NewMemoryStateStore(factory.Clock)
	notifier := &recordingNotifier{}
	calendar := &calendarStub{}

	assistant := factory.NewAssistant(AssistantDeps{
		Store:     store,
		Extractor: staticExtractor{NewTimedRecord()},
		Calendar:  calendar,
		Provider:  staticProvider{},
		Notifier:  notifier,
		ChannelID: "chan-1",
	})

	if _, err := assistant.Registration.StartRegistration(ctx, "user-1", "chan-1"); err != nil {
		t.Fatalf("StartRegistration: %v", err)
	}
	_, err := assistant.Registration.HandleMessage(ctx, NewMessage("chan-1", "user-1", "明日15時 打ち合わせ"))
	if err == nil {
		t.Fatal("expected authorization to be required")
	}
	if len(notifier.direct) != 1 || !strings.Contains(notifier.direct[0], "state=token-1") {
		t.Fatalf("expected consent URL keyed to token-1, got %v", notifier.direct)
	}
	if calendar.created != 0 {
		t.Fatal("no event may be created before authorization")
	}

	if _, err := assistant.Authorization.CompleteAuthorization(ctx, "token-1", "code"); err != nil {
		t.Fatalf("CompleteAuthorization: %v", err)
	}

	if _, err := assistant.Registration.StartRegistration(ctx, "user-1", "chan-1"); err != nil {
		t.Fatalf("StartRegistration: %v", err)
	}
	result, err := assistant.Registration.HandleMessage(ctx, NewMessage("chan-1", "user-1", "明日15時 打ち合わせ"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if result.Succeeded() != 1 || calendar.created != 1 || len(notifier.created) != 1 {
		t.Fatalf("expected one created event, got result=%+v created=%d", result, calendar.created)
	}
	if state, _ := store.CurrentState(ctx, "user-1"); state != application.StateNone {
		t.Fatalf("expected NONE after processing, got %s", state)
	}
}

func TestServiceFactory_SweeperUsesClock(t *testing.T) {
	ctx := context.Background()
	factory := NewServiceFactory()
	store := NewMemoryStateStore(factory.Clock)
	notifier := &recordingNotifier{}
	assistant := factory.NewAssistant(AssistantDeps{Store: store, Notifier: notifier, ChannelID: "chan-1", StateTimeout: time.Minute})

	if _, err := assistant.Registration.StartRegistration(ctx, "user-1", "chan-1"); err != nil {
		t.Fatalf("StartRegistration: %v", err)
	}

	factory.Clock.Advance(time.Minute)
	expired, err := assistant.Sweeper.SweepOnce(ctx)
	if err != nil || len(expired) != 0 {
		t.Fatalf("state exactly at the threshold must survive, got %v %v", expired, err)
	}

	factory.Clock.Advance(time.Second)
	expired, err = assistant.Sweeper.SweepOnce(ctx)
	if err != nil || len(expired) != 1 || expired[0] != "user-1" {
		t.Fatalf("expected user-1 to expire, got %v %v", expired, err)
	}
	if len(notifier.direct) != 1 {
		t.Fatalf("expected one timeout notice, got %v", notifier.direct)
	}
}

func TestSQLiteHarness(t *testing.T) {
	ctx := context.Background()
	harness := NewSQLiteHarness(t, WithEncryptionKey("fixture-secret"))

	if err := harness.Storage.SetState(ctx, "user-1", persistence.AwaitingInput); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	harness.Clock.Advance(10 * time.Minute)

	stale, err := harness.Storage.ListStale(ctx, persistence.AwaitingInput, 5*time.Minute)
	if err != nil {
		t.Fatalf("ListStale: %v", err)
	}
	if len(stale) != 1 || stale[0] != "user-1" {
		t.Fatalf("expected user-1 to be stale, got %v", stale)
	}

	blob := CredentialBlob("user-1", harness.Clock.Now())
	if err := harness.Storage.SaveCredential(ctx, "user-1", blob); err != nil {
		t.Fatalf("SaveCredential: %v", err)
	}
	cred, err := harness.Storage.GetCredential(ctx, "user-1")
	if err != nil || cred.Blob != blob {
		t.Fatalf("expected credential round trip, got %q %v", cred.Blob, err)
	}
}

func TestRecordFixtures(t *testing.T) {
	timed := NewTimedRecord(WithSummary("歯医者"), WithStart("2024-06-10", "09:30"))
	if timed.Summary != "歯医者" || timed.StartTime != "09:30" || timed.AllDay() {
		t.Fatalf("unexpected timed record %+v", timed)
	}
	if err := application.ValidateRecords([]application.EventRecord{timed, NewAllDayRecord()}); err != nil {
		t.Fatalf("fixtures must validate: %v", err)
	}

	first := NewMessage("chan", "user", "a")
	second := NewMessage("chan", "user", "b")
	if first.Ref.MessageID == second.Ref.MessageID {
		t.Fatal("message ids must be unique")
	}
}
