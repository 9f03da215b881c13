package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/calivra/calivra_bank/internal/apperr"
	"github.com/calivra/calivra_bank/internal/realtime"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []SessionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	if evt, ok := value.(SessionEvent); ok {
		p.events = append(p.events, evt)
	}
	return nil
}

func adminPolicy(email string) bool { return email == "admin@calivra.test" }

func TestRegisterAndAuthenticate(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(NewMemoryRepository(), adminPolicy, pub, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Email: " Ada@Example.com ", Password: "secret1", DisplayName: "Ada"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "ada@example.com" || user.Role != RoleUser {
		t.Fatalf("unexpected user: %+v", user)
	}

	authed, err := svc.Authenticate(ctx, Credentials{Email: "ADA@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.LastLogin == nil {
		t.Fatal("expected last login to be recorded")
	}
	if len(pub.events) != 1 || !pub.events[0].SignedIn || pub.topics[0] != realtime.SessionTopic(user.ID) {
		t.Fatalf("expected sign-in event, got %+v", pub.events)
	}
}

func TestRegisterRejectsDuplicateAndShortPassword(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Email: "a@b.co", Password: "123"}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Email: "a@b.co", Password: "123456"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Email: "A@B.co", Password: "123456"}); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("expected email in use, got %v", err)
	}
}

func TestRegisterAssignsAdminRole(t *testing.T) {
	svc := NewService(NewMemoryRepository(), adminPolicy, nil, nil)
	user, err := svc.Register(context.Background(), Credentials{Email: "admin@calivra.test", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !user.IsAdmin() {
		t.Fatalf("expected admin role, got %s", user.Role)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil, nil, nil)
	ctx := context.Background()
	if _, err := svc.Register(ctx, Credentials{Email: "a@b.co", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Email: "a@b.co", Password: "wrong!"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Email: "nobody@b.co", Password: "secret1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}
}

func TestBumpTokenVersionPublishesSignOut(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(NewMemoryRepository(), nil, pub, nil)
	ctx := context.Background()
	user, _ := svc.Register(ctx, Credentials{Email: "a@b.co", Password: "secret1"})

	bumped, err := svc.BumpTokenVersion(ctx, user.ID)
	if err != nil {
		t.Fatalf("bump: %v", err)
	}
	if bumped.TokenVersion != 1 {
		t.Fatalf("expected version 1, got %d", bumped.TokenVersion)
	}
	if len(pub.events) != 1 || pub.events[0].SignedIn {
		t.Fatalf("expected sign-out event, got %+v", pub.events)
	}

	updated, err := svc.UpdateProfile(ctx, user.ID, "  Grace ")
	if err != nil || updated.DisplayName != "Grace" {
		t.Fatalf("update profile: %+v %v", updated, err)
	}
}
