package group

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/events"
	"github.com/localgroup/localgroup-server/internal/logger"
	"github.com/localgroup/localgroup-server/internal/model"
	"github.com/localgroup/localgroup-server/internal/store/memory"
)

type fixture struct {
	svc    *Service
	groups *memory.GroupStore
	users  *memory.UserStore
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithPublisher(t, events.NewLogPublisher(logger.Nop()))
}

func newFixtureWithPublisher(t *testing.T, pub events.Publisher) *fixture {
	t.Helper()
	f := &fixture{
		groups: memory.NewGroupStore(),
		users:  memory.NewUserStore(),
		now:    time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.groups, f.users, pub, Config{}, logger.Nop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) addUser(t *testing.T, email string) string {
	t.Helper()
	id := uuid.NewString()
	err := f.users.CreateUser(context.Background(), &model.User{ID: id, Email: email, Phone: email, Verified: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

func (f *fixture) createGroup(t *testing.T, creatorID string, p CreateParams) *model.GroupView {
	t.Helper()
	if p.DateTime.IsZero() {
		p.DateTime = f.now.Add(48 * time.Hour)
	}
	if p.MaxSize == 0 {
		p.MaxSize = 4
	}
	if p.Visibility == "" {
		p.Visibility = model.VisibilityPublic
	}
	if p.PlaceID == "" {
		p.PlaceID = "place-1"
	}
	g, err := f.svc.Create(context.Background(), creatorID, p)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	return g
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	creator := f.addUser(t, "a@example.com")
	future := f.now.Add(time.Hour)

	tests := []struct {
		name    string
		params  CreateParams
		wantErr error
	}{
		{"max size too small", CreateParams{PlaceID: "p", DateTime: future, MaxSize: 1, Visibility: model.VisibilityPublic}, apperr.ErrBadRequest},
		{"max size too big", CreateParams{PlaceID: "p", DateTime: future, MaxSize: 7, Visibility: model.VisibilityPublic}, apperr.ErrBadRequest},
		{"missing place", CreateParams{DateTime: future, MaxSize: 3, Visibility: model.VisibilityPublic}, apperr.ErrBadRequest},
		{"past date", CreateParams{PlaceID: "p", DateTime: f.now.Add(-time.Hour), MaxSize: 3, Visibility: model.VisibilityPublic}, apperr.ErrBadRequest},
		{"private without code", CreateParams{PlaceID: "p", DateTime: future, MaxSize: 3, Visibility: model.VisibilityPrivate}, apperr.ErrBadRequest},
		{"bad visibility", CreateParams{PlaceID: "p", DateTime: future, MaxSize: 3, Visibility: "SECRET"}, apperr.ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), creator, tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateAutoJoinsCreatorConfirmed(t *testing.T) {
	f := newFixture(t)
	creator := f.addUser(t, "a@example.com")
	g := f.createGroup(t, creator, CreateParams{})

	if g.Status != model.StatusJoinable {
		t.Fatalf("status = %s, want JOINABLE", g.Status)
	}
	if g.MemberCount != 1 {
		t.Fatalf("member count = %d, want 1", g.MemberCount)
	}
	members, _ := f.svc.Members(context.Background(), g.ID)
	if len(members) != 1 || members[0].UserID != creator || !members[0].Confirmed {
		t.Fatalf("creator should be the sole, confirmed member: %+v", members)
	}
}

func TestCreatorActiveGroupLimit(t *testing.T) {
	f := newFixture(t)
	creator := f.addUser(t, "a@example.com")
	f.createGroup(t, creator, CreateParams{})
	f.createGroup(t, creator, CreateParams{})

	_, err := f.svc.Create(context.Background(), creator, CreateParams{
		PlaceID: "p", DateTime: f.now.Add(time.Hour), MaxSize: 3, Visibility: model.VisibilityPublic,
	})
	if !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("third active group: got %v, want ErrInvalidState", err)
	}
}

func TestJoinFillsGroupIntoConfirmation(t *testing.T) {
	f := newFixture(t)
	creator := f.addUser(t, "a@example.com")
	b := f.addUser(t, "b@example.com")
	g := f.createGroup(t, creator, CreateParams{MaxSize: 2})

	if err := f.svc.Join(context.Background(), g.ID, b); err != nil {
		t.Fatalf("join: %v", err)
	}
	got, _ := f.svc.Get(context.Background(), g.ID)
	if got.Status != model.StatusConfirmation {
		t.Fatalf("status after filling = %s, want CONFIRMATION", got.Status)
	}
	if got.MemberCount != 2 {
		t.Fatalf("member count = %d, want 2", got.MemberCount)
	}
}

func TestJoinRules(t *testing.T) {
	f := newFixture(t)
	creator := f.addUser(t, "a@example.com")
	b := f.addUser(t, "b@example.com")
	blocked := f.addUser(t, "blocked@example.com")
	g := f.createGroup(t, creator, CreateParams{MaxSize: 3})
	_ = f.users.BlockUser(context.Background(), creator, blocked)

	if err := f.svc.Join(context.Background(), g.ID, creator); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("creator re-join: got %v, want ErrInvalidState", err)
	}
	if err := f.svc.Join(context.Background(), g.ID, blocked); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("blocked user join: got %v, want ErrForbidden", err)
	}
	if err := f.svc.Join(context.Background(), "no-such-group", b); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown group: got %v, want ErrNotFound", err)
	}
	if err := f.svc.Join(context.Background(), g.ID, b); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := f.svc.Join(context.Background(), g.ID, b); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("double join: got %v, want ErrInvalidState", err)
	}
}

func TestJoinPrivateInviteCode(t *testing.T) {
	f := newFixture(t)
	creator := f.addUser(t, "a@example.com")
	b := f.addUser(t, "b@example.com")
	g := f.createGroup(t, creator, CreateParams{Visibility: model.VisibilityPrivate, InviteCode: "hunter2"})

	if err := f.svc.JoinPrivate(context.Background(), g.ID, b, "wrong"); !errors.Is(err, apperr.ErrInvalidInviteCode) {
		t.Fatalf("wrong code: got %v, want ErrInvalidInviteCode", err)
	}
	got, _ := f.svc.Get(context.Background(), g.ID)
	if got.MemberCount != 1 {
		t.Fatalf("failed join must not mutate membership, count = %d", got.MemberCount)
	}

	if err := f.svc.JoinPrivate(context.Background(), g.ID, b, "hunter2"); err != nil {
		t.Fatalf("correct code: %v", err)
	}
	// plain join must not bypass the code
	c := f.addUser(t, "c@example.com")
	if err := f.svc.Join(context.Background(), g.ID, c); !errors.Is(err, apperr.ErrInvalidInviteCode) {
		t.Fatalf("join without code: got %v, want ErrInvalidInviteCode", err)
	}
}

func TestJoinPrivateRejectsPublicGroup(t *testing.T) {
	f := newFixture(t)
	creator := f.addUser(t, "a@example.com")
	b := f.addUser(t, "b@example.com")
	g := f.createGroup(t, creator, CreateParams{})

	if err := f.svc.JoinPrivate(context.Background(), g.ID, b, "whatever"); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("invite-code join of a public group: got %v, want ErrInvalidState", err)
	}
	got, _ := f.svc.Get(context.Background(), g.ID)
	if got.MemberCount != 1 {
		t.Fatalf("rejected join must not mutate membership, count = %d", got.MemberCount)
	}
}

func TestConcurrentJoinsNeverExceedMaxSize(t *testing.T) {
	f := newFixture(t)
	creator := f.addUser(t, "a@example.com")
	g := f.createGroup(t, creator, CreateParams{MaxSize: 2}) // one free slot

	const racers = 16
	ids := make([]string, racers)
	for i := range ids {
		ids[i] = f.addUser(t, fmt.Sprintf("u%d@example.com", i))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for _, id := range ids {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			if err := f.svc.Join(context.Background(), g.ID, userID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("successful joins = %d, want exactly 1", succeeded)
	}
	got, _ := f.svc.Get(context.Background(), g.ID)
	if got.MemberCount > got.MaxSize {
		t.Fatalf("members %d exceeds maxSize %d", got.MemberCount, got.MaxSize)
	}
}

func TestLeaveRules(t *testing.T) {
	f := newFixture(t)
	creator := f.addUser(t, "a@example.com")
	b := f.addUser(t, "b@example.com")
	g := f.createGroup(t, creator, CreateParams{MaxSize: 3})
	if err := f.svc.Join(context.Background(), g.ID, b); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := f.svc.Leave(context.Background(), g.ID, "stranger"); !errors.Is(err, apperr.ErrNotAMember) {
		t.Fatalf("stranger leave: got %v, want ErrNotAMember", err)
	}

	if err := f.svc.Leave(context.Background(), g.ID, b); err != nil {
		t.Fatalf("leave joinable: %v", err)
	}
	got, _ := f.svc.Get(context.Background(), g.ID)
	if got.MemberCount != 1 {
		t.Fatalf("member count after leave = %d, want 1", got.MemberCount)
	}

	// leave is forbidden once the meetup is live
	_ = f.groups.UpdateGroupStatus(context.Background(), g.ID, model.StatusActive)
	if err := f.svc.Leave(context.Background(), g.ID, creator); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("leave active: got %v, want ErrInvalidState", err)
	}
}

func TestCreatorLeaveExpiresGroup(t *testing.T) {
	f := newFixture(t)
	creator := f.addUser(t, "a@example.com")
	b := f.addUser(t, "b@example.com")
	g := f.createGroup(t, creator, CreateParams{MaxSize: 3})
	if err := f.svc.Join(context.Background(), g.ID, b); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := f.svc.Leave(context.Background(), g.ID, creator); err != nil {
		t.Fatalf("creator leave: %v", err)
	}
	got, _ := f.svc.Get(context.Background(), g.ID)
	if got.Status != model.StatusExpired {
		t.Fatalf("status = %s, want EXPIRED after creator left", got.Status)
	}
}

func TestConfirmIdempotentAndAllConfirmedActivates(t *testing.T) {
	f := newFixture(t)
	creator := f.addUser(t, "a@example.com")
	b := f.addUser(t, "b@example.com")
	g := f.createGroup(t, creator, CreateParams{MaxSize: 2})
	if err := f.svc.Join(context.Background(), g.ID, b); err != nil {
		t.Fatalf("join: %v", err)
	}
	// group is now CONFIRMATION; the creator is pre-confirmed

	if err := f.svc.Confirm(context.Background(), g.ID, "stranger"); !errors.Is(err, apperr.ErrNotAMember) {
		t.Fatalf("stranger confirm: got %v, want ErrNotAMember", err)
	}
	if err := f.svc.Confirm(context.Background(), g.ID, b); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := f.svc.Confirm(context.Background(), g.ID, b); err != nil {
		t.Fatalf("repeat confirm must be a no-op: %v", err)
	}

	got, _ := f.svc.Get(context.Background(), g.ID)
	if got.Status != model.StatusActive {
		t.Fatalf("status = %s, want ACTIVE once everyone confirmed", got.Status)
	}
}

func TestLeaveByLastHoldoutActivates(t *testing.T) {
	f := newFixture(t)
	creator := f.addUser(t, "a@example.com")
	b := f.addUser(t, "b@example.com")
	c := f.addUser(t, "c@example.com")
	g := f.createGroup(t, creator, CreateParams{MaxSize: 3})
	ctx := context.Background()
	for _, id := range []string{b, c} {
		if err := f.svc.Join(ctx, g.ID, id); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	if err := f.svc.Confirm(ctx, g.ID, b); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// c never confirmed; once c is gone everyone remaining has
	if err := f.svc.Leave(ctx, g.ID, c); err != nil {
		t.Fatalf("leave: %v", err)
	}
	got, _ := f.svc.Get(ctx, g.ID)
	if got.Status != model.StatusActive {
		t.Fatalf("status = %s, want ACTIVE once the holdout left", got.Status)
	}
}

func TestLeaveLeavingSoloMemberStaysConfirmation(t *testing.T) {
	f := newFixture(t)
	creator := f.addUser(t, "a@example.com")
	b := f.addUser(t, "b@example.com")
	g := f.createGroup(t, creator, CreateParams{MaxSize: 2})
	ctx := context.Background()
	if err := f.svc.Join(ctx, g.ID, b); err != nil {
		t.Fatalf("join: %v", err)
	}

	// only the confirmed creator remains; too few to go live
	if err := f.svc.Leave(ctx, g.ID, b); err != nil {
		t.Fatalf("leave: %v", err)
	}
	got, _ := f.svc.Get(ctx, g.ID)
	if got.Status != model.StatusConfirmation {
		t.Fatalf("status = %s, want CONFIRMATION with a lone member", got.Status)
	}
}

func TestConfirmOutsideConfirmationFails(t *testing.T) {
	f := newFixture(t)
	creator := f.addUser(t, "a@example.com")
	g := f.createGroup(t, creator, CreateParams{MaxSize: 3})

	if err := f.svc.Confirm(context.Background(), g.ID, creator); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("confirm while JOINABLE: got %v, want ErrInvalidState", err)
	}
}

func TestReportQuorumRemovesTargetOnce(t *testing.T) {
	f := newFixture(t)
	creator := f.addUser(t, "a@example.com")
	b := f.addUser(t, "b@example.com")
	c := f.addUser(t, "c@example.com")
	target := f.addUser(t, "d@example.com")
	g := f.createGroup(t, creator, CreateParams{MaxSize: 4})
	for _, id := range []string{b, c, target} {
		if err := f.svc.Join(context.Background(), g.ID, id); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
	ctx := context.Background()

	if err := f.svc.Report(ctx, g.ID, target, target); !errors.Is(err, apperr.ErrInvalidTarget) {
		t.Fatalf("self report: got %v, want ErrInvalidTarget", err)
	}
	if err := f.svc.Report(ctx, g.ID, "stranger", target); !errors.Is(err, apperr.ErrNotAMember) {
		t.Fatalf("stranger report: got %v, want ErrNotAMember", err)
	}

	// quorum for n=4 is 3 distinct reporters; repeats don't count
	for i := 0; i < 3; i++ {
		if err := f.svc.Report(ctx, g.ID, creator, target); err != nil {
			t.Fatalf("report: %v", err)
		}
	}
	got, _ := f.svc.Get(ctx, g.ID)
	if got.MemberCount != 4 {
		t.Fatalf("repeat reports advanced quorum: count = %d", got.MemberCount)
	}

	if err := f.svc.Report(ctx, g.ID, b, target); err != nil {
		t.Fatalf("report: %v", err)
	}
	if err := f.svc.Report(ctx, g.ID, c, target); err != nil {
		t.Fatalf("report: %v", err)
	}

	got, _ = f.svc.Get(ctx, g.ID)
	if got.MemberCount != 3 {
		t.Fatalf("target not removed, count = %d", got.MemberCount)
	}
	if member, _ := f.svc.IsMember(ctx, g.ID, target); member {
		t.Fatal("target still a member after quorum")
	}

	// removed member is barred from rejoining this group instance
	if err := f.svc.Join(ctx, g.ID, target); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("barred rejoin: got %v, want ErrForbidden", err)
	}
}

// stuckPublisher parks every Publish call until release is closed,
// standing in for an unreachable broker.
type stuckPublisher struct {
	entered chan struct{}
	release chan struct{}
}

func (p *stuckPublisher) Publish(context.Context, events.Event) error {
	p.entered <- struct{}{}
	<-p.release
	return nil
}

func (p *stuckPublisher) Close() error { return nil }

func TestSlowEventPipelineDoesNotStallMutations(t *testing.T) {
	pub := &stuckPublisher{entered: make(chan struct{}), release: make(chan struct{})}
	f := newFixtureWithPublisher(t, pub)
	creator := f.addUser(t, "a@example.com")
	b := f.addUser(t, "b@example.com")
	g := f.createGroup(t, creator, CreateParams{MaxSize: 2})
	ctx := context.Background()
	if err := f.svc.Join(ctx, g.ID, b); err != nil {
		t.Fatalf("join: %v", err)
	}

	// b's confirmation activates the group and then hangs in the publisher
	confirmed := make(chan error, 1)
	go func() { confirmed <- f.svc.Confirm(ctx, g.ID, b) }()
	<-pub.entered

	// other mutations on the same group must still get the lock
	left := make(chan error, 1)
	go func() { left <- f.svc.Leave(ctx, g.ID, creator) }()
	select {
	case err := <-left:
		if !errors.Is(err, apperr.ErrInvalidState) {
			t.Fatalf("leave active: got %v, want ErrInvalidState", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("leave stalled behind the event pipeline")
	}

	close(pub.release)
	if err := <-confirmed; err != nil {
		t.Fatalf("confirm: %v", err)
	}
	got, _ := f.svc.Get(ctx, g.ID)
	if got.Status != model.StatusActive {
		t.Fatalf("status = %s, want ACTIVE", got.Status)
	}
}
