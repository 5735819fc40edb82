package session

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/coursechat/internal/confirm"
	"github.com/desertthunder/coursechat/internal/models"
	"github.com/desertthunder/coursechat/internal/server"
	"github.com/desertthunder/coursechat/internal/services"
)

func TestDevBackendRoundTrip(t *testing.T) {
	ts := httptest.NewServer(server.New(server.Opts{}).Handler())
	client := services.NewClient(services.ClientOpts{BaseURL: ts.URL, HTTPClient: ts.Client(), RateLimit: 1000})
	t.Cleanup(func() {
		ts.Close()
		ts.Client().CloseIdleConnections()
	})

	fx := setup(t, fixtureOpts{transport: client})
	ctx := context.Background()

	reply, err := await(t, fx.sync.SendUserMessage(ctx, "teach me Go channels"))
	if err != nil || !reply.NeedConfirm {
		t.Fatalf("expected a confirmation request, got %+v (%v)", reply, err)
	}
	if _, err := await(t, fx.sync.Confirm(ctx)); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if fx.sync.ConfirmState() != confirm.Idle {
		t.Error("expected idle after confirm")
	}

	u, err := await(t, fx.sync.CheckForUpdates(ctx))
	if err != nil || u.Course == nil {
		t.Fatalf("expected a delivered course, got %+v (%v)", u, err)
	}
	if u.Course.Title != "Go channels" || len(u.Course.Outline) != 3 {
		t.Errorf("unexpected course %+v", u.Course)
	}

	content, err := await(t, fx.sync.AnswerStudyPrompt(ctx, true))
	if err != nil || content == "" {
		t.Fatalf("study failed: %q (%v)", content, err)
	}

	if err := fx.store.Complete(u.Course.ID, 0); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	c, _ := fx.store.Course(u.Course.ID)
	if done, total := c.Progress(); done != 1 || total != 3 {
		t.Errorf("expected 1/3 complete, got %d/%d", done, total)
	}

	if err := fx.store.Sync(ctx); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	synced, ok := fx.store.Course(u.Course.ID)
	if !ok || synced.Item(0).Status != models.InProgress {
		t.Errorf("backend reports the studied chapter in progress, got %+v", synced)
	}

	if err := fx.store.Delete(ctx, u.Course.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := fx.store.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
}
