package telegram

import (
	"context"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// fakeClient records calls and lets tests script Poll.
type fakeClient struct {
	mu sync.Mutex

	deleteCalls int
	webhooks    []string
	pollCalls   int
	sent        []*bot.SendMessageParams
	updates     []*models.Update

	deleteErr error
	setErr    error
	sendErr   error

	// pollErr is returned by Poll immediately when set; otherwise Poll
	// blocks until its context is cancelled.
	pollErr     error
	pollStarted chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{pollStarted: make(chan struct{}, 8)}
}

func (f *fakeClient) DeleteWebhook(_ context.Context, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeClient) SetWebhook(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.webhooks = append(f.webhooks, url)
	return nil
}

func (f *fakeClient) Poll(ctx context.Context) error {
	f.mu.Lock()
	f.pollCalls++
	err := f.pollErr
	f.mu.Unlock()

	f.pollStarted <- struct{}{}
	if err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (f *fakeClient) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, params)
	return &models.Message{ID: len(f.sent)}, nil
}

func (f *fakeClient) HandleUpdate(_ context.Context, update *models.Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update)
}

func (f *fakeClient) counts() (deletes, webhooks, polls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteCalls, len(f.webhooks), f.pollCalls
}

func factoryFor(c Client) ClientFactory {
	return func(string) (Client, error) { return c, nil }
}
