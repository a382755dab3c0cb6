package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/taskbridge/internal/config"
	"github.com/edgard/taskbridge/internal/database"
	"github.com/edgard/taskbridge/internal/logger"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []*bot.SendMessageParams
}

func (f *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, params)
	return &models.Message{ID: len(f.sent)}, nil
}

func (f *fakeSender) last(t *testing.T) *bot.SendMessageParams {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no message sent")
	}
	return f.sent[len(f.sent)-1]
}

// fakeStore implements database.Store over an in-memory profile list.
type fakeStore struct {
	database.Store

	profiles map[string]*database.Profile
	links    map[int64]database.TelegramLink
	findErr  error
	linkErr  error
	panicOn  string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: map[string]*database.Profile{},
		links:    map[int64]database.TelegramLink{},
	}
}

func (f *fakeStore) FindProfileByPhone(_ context.Context, key string) (*database.Profile, error) {
	if f.panicOn == key {
		panic("store exploded")
	}
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.profiles[key], nil
}

func (f *fakeStore) LinkTelegramToProfile(_ context.Context, id int64, link database.TelegramLink) error {
	if f.linkErr != nil {
		return f.linkErr
	}
	f.links[id] = link
	return nil
}

func testDeps(store database.Store) HandlerDeps {
	return HandlerDeps{
		Logger: logger.Discard(),
		Config: &config.Config{Messages: config.DefaultMessages},
		Store:  store,
	}
}

func contactUpdate(phoneNumber string, chatID int64) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			Chat:    models.Chat{ID: chatID},
			From:    &models.User{ID: 77, Username: "ana"},
			Contact: &models.Contact{PhoneNumber: phoneNumber, UserID: 77},
		},
	}
}

func TestStartHandlerSendsContactKeyboard(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}

	startHandler{testDeps(newFakeStore())}.handle(context.Background(), sender, &models.Update{
		Message: &models.Message{Chat: models.Chat{ID: 10}, Text: "/start"},
	})

	msg := sender.last(t)
	if msg.Text != config.DefaultMessages.SharePrompt {
		t.Errorf("text = %q", msg.Text)
	}
	kb, ok := msg.ReplyMarkup.(*models.ReplyKeyboardMarkup)
	if !ok {
		t.Fatalf("reply markup = %T, want *models.ReplyKeyboardMarkup", msg.ReplyMarkup)
	}
	if !kb.OneTimeKeyboard || !kb.ResizeKeyboard {
		t.Error("keyboard should be one-time and resized")
	}
	if len(kb.Keyboard) != 1 || len(kb.Keyboard[0]) != 1 || !kb.Keyboard[0][0].RequestContact {
		t.Errorf("keyboard = %+v, want one request_contact button", kb.Keyboard)
	}
}

func TestContactHandler(t *testing.T) {
	t.Parallel()

	msgs := config.DefaultMessages
	tests := []struct {
		name      string
		update    *models.Update
		setup     func(*fakeStore)
		wantText  string
		wantLink  bool
		wantReset bool
	}{
		{
			name:      "links matching profile",
			update:    contactUpdate("+1 (555) 123-4567", 1001),
			setup:     func(s *fakeStore) { s.profiles["5551234567"] = &database.Profile{ID: 3} },
			wantText:  msgs.Linked,
			wantLink:  true,
			wantReset: true,
		},
		{
			name:     "unknown phone",
			update:   contactUpdate("5550000000", 1001),
			wantText: msgs.NotRegistered,
		},
		{
			name:     "missing phone",
			update:   contactUpdate("  ", 1001),
			wantText: msgs.ContactUnreadable,
		},
		{
			name:     "missing chat",
			update:   contactUpdate("5551234567", 0),
			wantText: msgs.ContactUnreadable,
		},
		{
			name: "someone else's contact",
			update: func() *models.Update {
				u := contactUpdate("5551234567", 1001)
				u.Message.Contact.UserID = 99
				return u
			}(),
			setup:    func(s *fakeStore) { s.profiles["5551234567"] = &database.Profile{ID: 3} },
			wantText: msgs.ForeignContact,
		},
		{
			name: "contact without telegram account",
			update: func() *models.Update {
				u := contactUpdate("5551234567", 1001)
				u.Message.Contact.UserID = 0
				return u
			}(),
			setup:    func(s *fakeStore) { s.profiles["5551234567"] = &database.Profile{ID: 3} },
			wantText: msgs.ForeignContact,
		},
		{
			name:     "lookup error",
			update:   contactUpdate("5551234567", 1001),
			setup:    func(s *fakeStore) { s.findErr = errors.New("db down") },
			wantText: msgs.LinkFailed,
		},
		{
			name:   "link error",
			update: contactUpdate("5551234567", 1001),
			setup: func(s *fakeStore) {
				s.profiles["5551234567"] = &database.Profile{ID: 3}
				s.linkErr = errors.New("write failed")
			},
			wantText: msgs.LinkFailed,
		},
		{
			name:     "panic in store",
			update:   contactUpdate("5551234567", 1001),
			setup:    func(s *fakeStore) { s.panicOn = "5551234567" },
			wantText: msgs.LinkFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := newFakeStore()
			if tt.setup != nil {
				tt.setup(store)
			}
			sender := &fakeSender{}

			contactHandler{testDeps(store)}.handle(context.Background(), sender, tt.update)

			msg := sender.last(t)
			if msg.Text != tt.wantText {
				t.Errorf("reply = %q, want %q", msg.Text, tt.wantText)
			}
			if msg.ChatID != tt.update.Message.Chat.ID {
				t.Errorf("reply chat = %v, want %d", msg.ChatID, tt.update.Message.Chat.ID)
			}

			link, linked := store.links[3]
			if linked != tt.wantLink {
				t.Fatalf("linked = %v, want %v", linked, tt.wantLink)
			}
			if linked && (link.ChatID != 1001 || link.Username != "ana" || !link.OptIn) {
				t.Errorf("link = %+v", link)
			}

			_, reset := msg.ReplyMarkup.(*models.ReplyKeyboardRemove)
			if reset != tt.wantReset {
				t.Errorf("keyboard removed = %v, want %v", reset, tt.wantReset)
			}
		})
	}
}

func TestFallbackHandler(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	h := fallbackHandler{testDeps(newFakeStore())}

	h.handle(context.Background(), sender, &models.Update{Message: &models.Message{Chat: models.Chat{ID: 5}, Text: "hello"}})
	if got := sender.last(t).Text; got != config.DefaultMessages.Fallback {
		t.Errorf("fallback reply = %q", got)
	}

	h.handle(context.Background(), sender, &models.Update{Message: &models.Message{Chat: models.Chat{ID: 5}}})
	h.handle(context.Background(), sender, &models.Update{})
	if len(sender.sent) != 1 {
		t.Errorf("sent %d messages, want 1", len(sender.sent))
	}
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	h := Recover(logger.Discard())(func(context.Context, *bot.Bot, *models.Update) {
		panic("boom")
	})
	h(context.Background(), nil, &models.Update{ID: 1})
}

func TestUpdateMiddlewaresRecoverPanics(t *testing.T) {
	t.Parallel()

	mws := UpdateMiddlewares(logger.Discard())
	var h bot.HandlerFunc = func(context.Context, *bot.Bot, *models.Update) {
		panic("fallback exploded")
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	h(context.Background(), nil, &models.Update{ID: 2, Message: &models.Message{Text: "hi"}})
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()

	handlers := RegisterAllCommands(testDeps(newFakeStore()))
	start, ok := handlers["/start"]
	if !ok || start.Pattern != "start" || start.Handler == nil {
		t.Errorf("/start registration = %+v", start)
	}
	contact, ok := handlers["contact"]
	if !ok || contact.Match == nil {
		t.Fatalf("contact registration = %+v", contact)
	}
	if !contact.Match(contactUpdate("1", 1)) || contact.Match(&models.Update{Message: &models.Message{Text: "hi"}}) {
		t.Error("contact matcher does not match only contact shares")
	}
}
