package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/doinghun/merlabot-public/internal/model"
	"github.com/doinghun/merlabot-public/internal/schedule"
	"github.com/doinghun/merlabot-public/internal/session"
)

// --- fakes ---

type recordedSend struct {
	kind    model.DirectiveKind
	text    string
	replies []model.QuickReplyOption
	cards   []model.Card
	url     string
}

type recordingSender struct {
	mu    sync.Mutex
	sends []recordedSend
}

func (s *recordingSender) record(r recordedSend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, r)
	return nil
}

func (s *recordingSender) SendText(_ context.Context, _ string, text string) error {
	return s.record(recordedSend{kind: model.DirectiveText, text: text})
}

func (s *recordingSender) SendQuickReply(_ context.Context, _ string, text string, replies []model.QuickReplyOption) error {
	return s.record(recordedSend{kind: model.DirectiveQuickReply, text: text, replies: replies})
}

func (s *recordingSender) SendCarousel(_ context.Context, _ string, cards []model.Card) error {
	return s.record(recordedSend{kind: model.DirectiveCarousel, cards: cards})
}

func (s *recordingSender) SendAttachment(_ context.Context, _ string, _ string, url string) error {
	return s.record(recordedSend{kind: model.DirectiveAttachment, url: url})
}

func (s *recordingSender) TypingOn(context.Context, string) error  { return nil }
func (s *recordingSender) TypingOff(context.Context, string) error { return nil }

func (s *recordingSender) all() []recordedSend {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]recordedSend, len(s.sends))
	copy(out, s.sends)
	return out
}

type detectCall struct {
	mode          string // "text" | "event"
	correlationID string
	arg           string
}

type fakeDetector struct {
	mu    sync.Mutex
	calls []detectCall
	resp  *model.NLUResponse
	done  chan detectCall
}

func newFakeDetector(resp *model.NLUResponse) *fakeDetector {
	if resp == nil {
		resp = &model.NLUResponse{FulfillmentText: "ok"}
	}
	return &fakeDetector{resp: resp, done: make(chan detectCall, 16)}
}

func (d *fakeDetector) detect(mode, correlationID, arg string) (*model.NLUResponse, error) {
	call := detectCall{mode: mode, correlationID: correlationID, arg: arg}
	d.mu.Lock()
	d.calls = append(d.calls, call)
	d.mu.Unlock()
	d.done <- call
	return d.resp, nil
}

func (d *fakeDetector) DetectText(_ context.Context, correlationID, text string) (*model.NLUResponse, error) {
	return d.detect("text", correlationID, text)
}

func (d *fakeDetector) DetectEvent(_ context.Context, correlationID, eventName string) (*model.NLUResponse, error) {
	return d.detect("event", correlationID, eventName)
}

func (d *fakeDetector) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *fakeDetector) wait(t *testing.T) detectCall {
	t.Helper()
	select {
	case c := <-d.done:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for detect call")
		return detectCall{}
	}
}

type fakeFinder struct {
	restaurant *model.Restaurant
	err        error
	cuisines   []string
}

func (f *fakeFinder) Random(_ context.Context, cuisine string) (*model.Restaurant, error) {
	f.cuisines = append(f.cuisines, cuisine)
	return f.restaurant, f.err
}

type stubProfiles struct{}

type blockingProfiles struct {
	unblock chan struct{}
}

func (p blockingProfiles) Fetch(_ context.Context, senderID string) (*model.UserProfile, error) {
	<-p.unblock
	return &model.UserProfile{ID: senderID, FirstName: "Mer"}, nil
}

func (stubProfiles) Fetch(_ context.Context, senderID string) (*model.UserProfile, error) {
	return &model.UserProfile{ID: senderID, FirstName: "Mer"}, nil
}

func newTestBot(detector *fakeDetector, finder *fakeFinder, sched schedule.Scheduler) (*Bot, *recordingSender) {
	sender := &recordingSender{}
	if finder == nil {
		finder = &fakeFinder{}
	}
	b := New(Options{
		Registry:    session.NewRegistry(stubProfiles{}),
		Detector:    detector,
		Sender:      sender,
		Restaurants: finder,
		Scheduler:   sched,
		Quantum:     time.Second,
		ServerURL:   "https://bot.example.com",
	})
	return b, sender
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func messageEvent(senderID string, msg *model.InboundMessage) model.WebhookBody {
	return model.WebhookBody{
		Object: "page",
		Entry: []model.Entry{{
			ID: "page-1",
			Messaging: []model.MessagingEvent{{
				Sender:  model.Principal{ID: senderID},
				Message: msg,
			}},
		}},
	}
}

// --- quick reply routing ---

func TestQuickReplyKnownPayloadTriggersEvent(t *testing.T) {
	detector := newFakeDetector(nil)
	b, _ := newTestBot(detector, nil, schedule.NewManual())

	b.HandleWebhook(context.Background(), messageEvent("user-1", &model.InboundMessage{
		QuickReply: &model.QuickReply{Payload: "MENU_RECOMMENDATION"},
	}))

	call := detector.wait(t)
	if call.mode != "event" || call.arg != "MENU_RECOMMENDATION" {
		t.Fatalf("expected event MENU_RECOMMENDATION, got %+v", call)
	}
}

func TestQuickReplyUnknownPayloadFallsBackToText(t *testing.T) {
	detector := newFakeDetector(nil)
	b, _ := newTestBot(detector, nil, schedule.NewManual())

	b.HandleWebhook(context.Background(), messageEvent("user-1", &model.InboundMessage{
		QuickReply: &model.QuickReply{Payload: "anything-else"},
	}))

	call := detector.wait(t)
	if call.mode != "text" || call.arg != "anything-else" {
		t.Fatalf("expected free-text query 'anything-else', got %+v", call)
	}
}

func TestTextMessageForwardedUnderStableCorrelationID(t *testing.T) {
	detector := newFakeDetector(nil)
	b, _ := newTestBot(detector, nil, schedule.NewManual())

	b.HandleWebhook(context.Background(), messageEvent("user-7", &model.InboundMessage{Text: "hello"}))
	first := detector.wait(t)

	b.HandleWebhook(context.Background(), messageEvent("user-7", &model.InboundMessage{Text: "again"}))
	second := detector.wait(t)

	if first.mode != "text" || first.arg != "hello" {
		t.Fatalf("unexpected first call: %+v", first)
	}
	if second.correlationID != first.correlationID {
		t.Errorf("correlation id changed between messages: %q vs %q",
			first.correlationID, second.correlationID)
	}
}

func TestEchoMessageIgnored(t *testing.T) {
	detector := newFakeDetector(nil)
	b, sender := newTestBot(detector, nil, schedule.NewManual())

	b.HandleWebhook(context.Background(), messageEvent("user-1", &model.InboundMessage{
		IsEcho: true,
		Text:   "echoed back",
	}))

	if n := detector.count(); n != 0 {
		t.Errorf("echo must not reach the NLU backend, got %d calls", n)
	}
	if n := len(sender.all()); n != 0 {
		t.Errorf("echo must not produce sends, got %d", n)
	}
}

func TestStandbyEventsObservedOnly(t *testing.T) {
	detector := newFakeDetector(nil)
	b, sender := newTestBot(detector, nil, schedule.NewManual())

	b.HandleWebhook(context.Background(), model.WebhookBody{
		Object: "page",
		Entry: []model.Entry{{
			ID: "page-1",
			Standby: []model.MessagingEvent{{
				Sender:  model.Principal{ID: "user-1"},
				Message: &model.InboundMessage{Text: "to the inbox"},
			}},
		}},
	})

	if n := detector.count(); n != 0 {
		t.Errorf("standby events must not be acted on, got %d NLU calls", n)
	}
	if n := len(sender.all()); n != 0 {
		t.Errorf("standby events must not produce sends, got %d", n)
	}
}

// --- interpreter ---

func TestEmptyResponseSendsClarificationFallback(t *testing.T) {
	b, sender := newTestBot(newFakeDetector(nil), nil, schedule.NewManual())

	b.HandleNLUResponse(context.Background(), "user-1", &model.NLUResponse{})

	sends := sender.all()
	if len(sends) != 1 || sends[0].kind != model.DirectiveText || sends[0].text != fallbackText {
		t.Fatalf("expected fallback text, got %+v", sends)
	}
}

func TestPlainFulfillmentTextSent(t *testing.T) {
	b, sender := newTestBot(newFakeDetector(nil), nil, schedule.NewManual())

	b.HandleNLUResponse(context.Background(), "user-1", &model.NLUResponse{FulfillmentText: "just text"})

	sends := sender.all()
	if len(sends) != 1 || sends[0].text != "just text" {
		t.Fatalf("expected plain text send, got %+v", sends)
	}
}

func TestFulfillmentMessagesArePaced(t *testing.T) {
	manual := schedule.NewManual()
	b, sender := newTestBot(newFakeDetector(nil), nil, manual)

	b.HandleNLUResponse(context.Background(), "user-1", &model.NLUResponse{
		FulfillmentMessages: []model.Message{
			{Kind: model.KindText, Text: "first"},
			{Kind: model.KindCard, Card: &model.Card{Title: "c1"}},
			{Kind: model.KindCard, Card: &model.Card{Title: "c2"}},
		},
	})

	if n := len(sender.all()); n != 0 {
		t.Fatalf("nothing should fire before the clock moves, got %d sends", n)
	}

	manual.Advance(0)
	if sends := sender.all(); len(sends) != 1 || sends[0].text != "first" {
		t.Fatalf("expected first text at offset 0, got %+v", sends)
	}

	manual.Advance(time.Second)
	sends := sender.all()
	if len(sends) != 2 || sends[1].kind != model.DirectiveCarousel || len(sends[1].cards) != 2 {
		t.Fatalf("expected merged carousel at 1s, got %+v", sends)
	}
}

func TestUnknownActionFallsBackToMessagePacing(t *testing.T) {
	manual := schedule.NewManual()
	b, sender := newTestBot(newFakeDetector(nil), nil, manual)

	b.HandleNLUResponse(context.Background(), "user-1", &model.NLUResponse{
		Action: "some.future.action",
		FulfillmentMessages: []model.Message{
			{Kind: model.KindText, Text: "hi"},
		},
	})

	manual.Advance(0)
	if sends := sender.all(); len(sends) != 1 || sends[0].text != "hi" {
		t.Fatalf("unknown action should pace its messages, got %+v", sends)
	}
}

// --- choreographies ---

func TestFoodChoiceChoreography(t *testing.T) {
	manual := schedule.NewManual()
	finder := &fakeFinder{restaurant: &model.Restaurant{
		Name:        "Tian Tian Hainanese Chicken Rice",
		Description: "the chicken rice benchmark",
		MapURL:      "https://maps.example.com/tian-tian",
		ImageURL:    "https://img.example.com/tian-tian.jpg",
	}}
	b, sender := newTestBot(newFakeDetector(nil), finder, manual)

	b.HandleNLUResponse(context.Background(), "user-1", &model.NLUResponse{
		Action:     "food-choice",
		Parameters: map[string]any{"food_type": "chinese"},
	})

	// ack text fires immediately
	if sends := sender.all(); len(sends) != 1 || sends[0].kind != model.DirectiveText {
		t.Fatalf("expected immediate ack text, got %+v", sends)
	}

	manual.Advance(2 * time.Second)
	sends := sender.all()
	if len(sends) != 2 || sends[1].kind != model.DirectiveCarousel {
		t.Fatalf("expected carousel at 2s, got %+v", sends)
	}
	if sends[1].cards[0].Title != "Tian Tian Hainanese Chicken Rice" {
		t.Errorf("carousel should carry the looked-up restaurant: %+v", sends[1].cards)
	}
	if len(finder.cuisines) != 1 || finder.cuisines[0] != "chinese" {
		t.Errorf("lookup should use the food_type parameter, got %v", finder.cuisines)
	}

	manual.Advance(2 * time.Second)
	sends = sender.all()
	if len(sends) != 3 || sends[2].kind != model.DirectiveQuickReply {
		t.Fatalf("expected follow-up quick reply at 4s, got %+v", sends)
	}
	if len(sends[2].replies) != 2 || sends[2].replies[1].Payload != "FOOD_TYPE" {
		t.Errorf("unexpected follow-up replies: %+v", sends[2].replies)
	}
}

func TestFoodChoiceLookupMissDropsStepSilently(t *testing.T) {
	manual := schedule.NewManual()
	finder := &fakeFinder{} // no result, no error
	b, sender := newTestBot(newFakeDetector(nil), finder, manual)

	b.HandleNLUResponse(context.Background(), "user-1", &model.NLUResponse{
		Action:     "food-choice",
		Parameters: map[string]any{"food_type": "martian"},
	})

	manual.Advance(4 * time.Second)

	sends := sender.all()
	if len(sends) != 2 {
		t.Fatalf("expected ack + follow-up only, got %+v", sends)
	}
	for _, s := range sends {
		if s.kind == model.DirectiveCarousel {
			t.Fatalf("missed lookup must not produce a carousel: %+v", s)
		}
	}
	// later steps of the same choreography still fire
	if sends[1].kind != model.DirectiveQuickReply || sends[1].text != foodVerdictText {
		t.Fatalf("follow-up step should survive the dropped one, got %+v", sends[1])
	}
}

func TestFoodChoiceLookupErrorAlsoDropsSilently(t *testing.T) {
	manual := schedule.NewManual()
	finder := &fakeFinder{err: errors.New("db down")}
	b, sender := newTestBot(newFakeDetector(nil), finder, manual)

	b.HandleNLUResponse(context.Background(), "user-1", &model.NLUResponse{
		Action:     "food-choice",
		Parameters: map[string]any{"food_type": "korean"},
	})

	manual.Advance(4 * time.Second)

	for _, s := range sender.all() {
		if s.kind == model.DirectiveCarousel {
			t.Fatalf("lookup error must not surface to the user: %+v", s)
		}
	}
}

func TestWelcomeChoreographySchedulesFollowUp(t *testing.T) {
	manual := schedule.NewManual()
	b, sender := newTestBot(newFakeDetector(nil), nil, manual)

	b.HandleNLUResponse(context.Background(), "user-1", &model.NLUResponse{
		Action: "input.welcome",
		FulfillmentMessages: []model.Message{
			{Kind: model.KindText, Text: "hello there"},
		},
	})

	manual.Advance(2 * time.Second)
	sends := sender.all()
	if len(sends) != 2 {
		t.Fatalf("expected paced message + follow-up, got %+v", sends)
	}
	if sends[1].kind != model.DirectiveQuickReply || sends[1].replies[0].Payload != "MENU_RECOMMENDATION" {
		t.Fatalf("unexpected follow-up: %+v", sends[1])
	}
}

func TestAskMenuChoreographySendsGifThenQuickReply(t *testing.T) {
	manual := schedule.NewManual()
	b, sender := newTestBot(newFakeDetector(nil), nil, manual)

	b.HandleNLUResponse(context.Background(), "user-1", &model.NLUResponse{Action: "ask-menu-flow"})

	sends := sender.all()
	if len(sends) != 1 || sends[0].kind != model.DirectiveAttachment {
		t.Fatalf("expected immediate gif attachment, got %+v", sends)
	}
	if sends[0].url != "https://bot.example.com"+hungryGifPath {
		t.Errorf("gif should resolve against the server url, got %q", sends[0].url)
	}

	manual.Advance(4 * time.Second)
	sends = sender.all()
	if len(sends) != 2 || sends[1].kind != model.DirectiveQuickReply {
		t.Fatalf("expected quick reply at 4s, got %+v", sends)
	}
}

// --- postbacks ---

func TestPostbackFoodTypeTriggersEvent(t *testing.T) {
	detector := newFakeDetector(nil)
	b, _ := newTestBot(detector, nil, schedule.NewManual())

	b.HandleWebhook(context.Background(), model.WebhookBody{
		Object: "page",
		Entry: []model.Entry{{
			Messaging: []model.MessagingEvent{{
				Sender:   model.Principal{ID: "user-1"},
				Postback: &model.Postback{Payload: "FOOD_TYPE"},
			}},
		}},
	})

	call := detector.wait(t)
	if call.mode != "event" || call.arg != "FOOD_TYPE" {
		t.Fatalf("expected FOOD_TYPE event, got %+v", call)
	}
}

func TestPostbackUnknownPayloadGetsFixedReply(t *testing.T) {
	detector := newFakeDetector(nil)
	b, sender := newTestBot(detector, nil, schedule.NewManual())

	b.HandleWebhook(context.Background(), model.WebhookBody{
		Object: "page",
		Entry: []model.Entry{{
			Messaging: []model.MessagingEvent{{
				Sender:   model.Principal{ID: "user-1"},
				Postback: &model.Postback{Payload: "SOMETHING_NEW"},
			}},
		}},
	})

	waitFor(t, func() bool { return len(sender.all()) == 1 })
	if sends := sender.all(); sends[0].text != postbackUnknownText {
		t.Fatalf("unexpected reply: %+v", sends)
	}
	if n := detector.count(); n != 0 {
		t.Errorf("unknown postback must not reach NLU, got %d calls", n)
	}
}

func TestGetStartedGreetsOnceProfileArrives(t *testing.T) {
	manual := schedule.NewManual()
	detector := newFakeDetector(nil)

	// keep the profile cache cold while the greeting decision is made
	unblock := make(chan struct{})
	t.Cleanup(func() { close(unblock) })
	b := New(Options{
		Registry:  session.NewRegistry(blockingProfiles{unblock: unblock}),
		Detector:  detector,
		Sender:    &recordingSender{},
		Scheduler: manual,
		Quantum:   time.Second,
	})

	b.HandleWebhook(context.Background(), model.WebhookBody{
		Object: "page",
		Entry: []model.Entry{{
			Messaging: []model.MessagingEvent{{
				Sender:   model.Principal{ID: "user-new"},
				Postback: &model.Postback{Payload: "GET_STARTED"},
			}},
		}},
	})

	// profile cache is cold: the greeting waits two seconds
	if n := detector.count(); n != 0 {
		t.Fatalf("greeting should be deferred, got %d calls", n)
	}

	manual.Advance(2 * time.Second)
	call := detector.wait(t)
	if call.mode != "event" || call.arg != "FACEBOOK_WELCOME" {
		t.Fatalf("expected deferred FACEBOOK_WELCOME, got %+v", call)
	}
}

// Two triggers for the same sender schedule independently; nothing serializes
// their deferred directives. This pins the accepted nondeterminism rather
// than an ordering guarantee.
func TestIndependentTriggersBothFire(t *testing.T) {
	manual := schedule.NewManual()
	b, sender := newTestBot(newFakeDetector(nil), nil, manual)

	b.HandleNLUResponse(context.Background(), "user-1", &model.NLUResponse{Action: "ask-menu-flow"})
	b.HandleNLUResponse(context.Background(), "user-1", &model.NLUResponse{Action: "input.welcome"})

	manual.Advance(4 * time.Second)

	var quickReplies int
	for _, s := range sender.all() {
		if s.kind == model.DirectiveQuickReply {
			quickReplies++
		}
	}
	if quickReplies != 2 {
		t.Fatalf("both choreographies should complete, got %d quick replies (%+v)",
			quickReplies, sender.all())
	}
}
