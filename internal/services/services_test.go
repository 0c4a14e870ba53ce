package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/postboard/apiserver/internal/auth"
	"github.com/postboard/apiserver/internal/mq"
	"github.com/postboard/apiserver/internal/store"
	"github.com/postboard/apiserver/types"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	users  *store.MemoryUserRepository
	posts  *store.MemoryPostRepository
	hasher auth.Hasher
	tokens *auth.TokenService
	broker *recordingBroker
	arch   *recordingArchiver

	userSvc *UserService
	authSvc *AuthService
	postSvc *PostService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := store.NewMemoryUserRepository()
	posts := store.NewMemoryPostRepository(users)
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	tokens, err := auth.NewTokenService("test-secret", auth.DefaultAlgorithm, 30*time.Minute)
	require.NoError(t, err)

	broker := &recordingBroker{}
	arch := &recordingArchiver{}

	return &fixture{
		users:   users,
		posts:   posts,
		hasher:  hasher,
		tokens:  tokens,
		broker:  broker,
		arch:    arch,
		userSvc: NewUserService(users, hasher),
		authSvc: NewAuthService(users, hasher, tokens),
		postSvc: NewPostService(posts, NewEventPublisher(broker, nil), arch),
	}
}

func (f *fixture) register(t *testing.T, username string) types.User {
	t.Helper()
	user, err := f.userSvc.Register(context.Background(), username, username+"@example.com", username+"-pw")
	require.NoError(t, err)
	return user
}

type recordingBroker struct {
	mu         sync.Mutex
	keys       []string
	payloads   [][]byte
	publishErr error
}

func (b *recordingBroker) Publish(_ context.Context, routingKey string, data []byte, _ map[string]string) (string, error) {
	if b.publishErr != nil {
		return "", b.publishErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, routingKey)
	b.payloads = append(b.payloads, data)
	return "msg-1", nil
}

func (b *recordingBroker) Subscribe(context.Context, string, mq.Handler) error { return nil }

func (b *recordingBroker) Close() error { return nil }

type recordingArchiver struct {
	archived []types.Post
	err      error
}

func (a *recordingArchiver) Archive(_ context.Context, post types.Post) error {
	if a.err != nil {
		return a.err
	}
	a.archived = append(a.archived, post)
	return nil
}

func TestUserService_Register(t *testing.T) {
	f := newFixture(t)

	user := f.register(t, "alice")
	require.NotEqual(t, "alice-pw", user.PasswordHash)
	require.True(t, f.hasher.Verify("alice-pw", user.PasswordHash))

	_, err := f.userSvc.Register(context.Background(), "alice", "other@example.com", "x")
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestUserService_Profile(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	got, err := f.userSvc.Profile(context.Background(), "alice", alice)
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)

	_, err = f.userSvc.Profile(context.Background(), "alice", bob)
	require.ErrorIs(t, err, auth.ErrForbidden)

	_, err = f.userSvc.Profile(context.Background(), "carol", bob)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")

	token, err := f.authSvc.Login(context.Background(), "alice", "alice-pw")
	require.NoError(t, err)
	require.NotEmpty(t, token.Value)

	subject, err := f.tokens.Verify(token.Value)
	require.NoError(t, err)
	require.Equal(t, "alice", subject)

	_, wrongPassErr := f.authSvc.Login(context.Background(), "alice", "nope")
	require.ErrorIs(t, wrongPassErr, ErrInvalidCredentials)
	require.ErrorIs(t, wrongPassErr, auth.ErrForbidden)

	_, unknownErr := f.authSvc.Login(context.Background(), "nobody", "nope")
	require.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	require.Equal(t, wrongPassErr.Error(), unknownErr.Error())
}

func TestAuthService_Authenticate(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")

	token, err := f.authSvc.Login(context.Background(), "alice", "alice-pw")
	require.NoError(t, err)

	user, err := f.authSvc.Authenticate(context.Background(), token.Value)
	require.NoError(t, err)
	require.Equal(t, alice.ID, user.ID)

	_, err = f.authSvc.Authenticate(context.Background(), "not-a-token")
	require.ErrorIs(t, err, auth.ErrUnauthenticated)

	ghost, err := f.tokens.Issue("ghost")
	require.NoError(t, err)
	_, err = f.authSvc.Authenticate(context.Background(), ghost.Value)
	require.ErrorIs(t, err, auth.ErrUnauthenticated)

	other, err := auth.NewTokenService("other-secret", auth.DefaultAlgorithm, time.Minute)
	require.NoError(t, err)
	forged, err := other.Issue("alice")
	require.NoError(t, err)
	_, err = f.authSvc.Authenticate(context.Background(), forged.Value)
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestPostService_CreateDefaultsPublished(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")

	post, err := f.postSvc.Create(context.Background(), alice, "hello", "world", nil)
	require.NoError(t, err)
	require.True(t, post.Published)
	require.Equal(t, alice.ID, post.OwnerID)

	draft := false
	post, err = f.postSvc.Create(context.Background(), alice, "draft", "wip", &draft)
	require.NoError(t, err)
	require.False(t, post.Published)

	require.Equal(t, []string{types.PostCreated, types.PostCreated}, f.broker.keys)

	var event types.PostEvent
	require.NoError(t, json.Unmarshal(f.broker.payloads[1], &event))
	require.Equal(t, post.ID, event.PostID)
	require.Equal(t, types.PostCreated, event.Type)
}

func TestPostService_Ownership(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	ctx := context.Background()

	post, err := f.postSvc.Create(ctx, alice, "mine", "alice only", nil)
	require.NoError(t, err)

	_, err = f.postSvc.Get(ctx, post.ID, bob)
	require.ErrorIs(t, err, auth.ErrForbidden)

	title := "stolen"
	_, err = f.postSvc.Update(ctx, post.ID, bob, types.PostPatch{Title: &title})
	require.ErrorIs(t, err, auth.ErrForbidden)

	err = f.postSvc.Delete(ctx, post.ID, bob)
	require.ErrorIs(t, err, auth.ErrForbidden)

	got, err := f.postSvc.Get(ctx, post.ID, alice)
	require.NoError(t, err)
	require.Equal(t, "mine", got.Title)
	require.Empty(t, f.arch.archived)
}

func TestPostService_MissingBeforeOwnership(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	post, err := f.postSvc.Create(context.Background(), alice, "t", "c", nil)
	require.NoError(t, err)
	require.NoError(t, f.postSvc.Delete(context.Background(), post.ID, alice))

	bob := f.register(t, "bob")
	for _, user := range []types.User{alice, bob} {
		_, err := f.postSvc.Get(context.Background(), post.ID, user)
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, f.postSvc.Delete(context.Background(), post.ID, user), store.ErrNotFound)
	}
}

func TestPostService_Update(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	ctx := context.Background()

	post, err := f.postSvc.Create(ctx, alice, "before", "body", nil)
	require.NoError(t, err)

	unchanged, err := f.postSvc.Update(ctx, post.ID, alice, types.PostPatch{})
	require.NoError(t, err)
	require.Equal(t, post, unchanged)
	require.Len(t, f.broker.keys, 1)

	title := "after"
	published := false
	updated, err := f.postSvc.Update(ctx, post.ID, alice, types.PostPatch{Title: &title, Published: &published})
	require.NoError(t, err)
	require.Equal(t, "after", updated.Title)
	require.Equal(t, "body", updated.Content)
	require.False(t, updated.Published)
	require.Equal(t, types.PostUpdated, f.broker.keys[len(f.broker.keys)-1])
}

func TestPostService_DeleteArchivesFirst(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	ctx := context.Background()

	post, err := f.postSvc.Create(ctx, alice, "bye", "content", nil)
	require.NoError(t, err)

	f.arch.err = errors.New("bucket down")
	err = f.postSvc.Delete(ctx, post.ID, alice)
	require.ErrorIs(t, err, f.arch.err)
	_, err = f.postSvc.Get(ctx, post.ID, alice)
	require.NoError(t, err)

	f.arch.err = nil
	require.NoError(t, f.postSvc.Delete(ctx, post.ID, alice))
	require.Len(t, f.arch.archived, 1)
	require.Equal(t, post.ID, f.arch.archived[0].ID)
	require.Equal(t, types.PostDeleted, f.broker.keys[len(f.broker.keys)-1])
}

func TestPostService_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	f.broker.publishErr = errors.New("broker unreachable")

	post, err := f.postSvc.Create(context.Background(), alice, "t", "c", nil)
	require.NoError(t, err)
	_, err = f.postSvc.Get(context.Background(), post.ID, alice)
	require.NoError(t, err)
}

func TestPostService_WithoutSideEffects(t *testing.T) {
	users := store.NewMemoryUserRepository()
	svc := NewPostService(store.NewMemoryPostRepository(users), NewEventPublisher(nil, nil), nil)
	alice, err := NewUserService(users, auth.NewBcryptHasher(bcrypt.MinCost)).Register(context.Background(), "alice", "a@example.com", "pw")
	require.NoError(t, err)

	post, err := svc.Create(context.Background(), alice, "t", "c", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), post.ID, alice))
}

func TestPostService_List(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	ctx := context.Background()

	for _, title := range []string{"Go tips", "Rust notes", "go routines"} {
		_, err := f.postSvc.Create(ctx, alice, title, "c", nil)
		require.NoError(t, err)
	}
	_, err := f.postSvc.Create(ctx, bob, "bob's go post", "c", nil)
	require.NoError(t, err)

	all, err := f.postSvc.List(ctx, alice, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, p := range all {
		require.Equal(t, alice.ID, p.OwnerID)
	}

	goPosts, err := f.postSvc.List(ctx, alice, "^go", 1, 10)
	require.NoError(t, err)
	require.Len(t, goPosts, 2)

	page2, err := f.postSvc.List(ctx, alice, "", 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)

	_, err = f.postSvc.List(ctx, alice, "([", 1, 10)
	require.ErrorIs(t, err, ErrInvalidInput)
}

type recordingHasher struct {
	auth.Hasher
	verified []string
}

func (h *recordingHasher) Verify(plaintext, hash string) bool {
	h.verified = append(h.verified, hash)
	return h.Hasher.Verify(plaintext, hash)
}

func TestAuthService_UnknownUserUsesConfiguredCost(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")

	hasher := &recordingHasher{Hasher: f.hasher}
	svc := NewAuthService(f.users, hasher, f.tokens)

	_, err := svc.Login(context.Background(), "nobody", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Len(t, hasher.verified, 1)

	cost, err := bcrypt.Cost([]byte(hasher.verified[0]))
	require.NoError(t, err)
	require.Equal(t, bcrypt.MinCost, cost)

	_, err = svc.Login(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Len(t, hasher.verified, 2)

	realCost, err := bcrypt.Cost([]byte(hasher.verified[1]))
	require.NoError(t, err)
	require.Equal(t, realCost, cost)
}

func TestPostService_ListPageOverflow(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	_, err := f.postSvc.Create(context.Background(), alice, "t", "c", nil)
	require.NoError(t, err)

	posts, err := f.postSvc.List(context.Background(), alice, "", math.MaxInt, MaxPageLimit)
	require.NoError(t, err)
	require.Empty(t, posts)

	posts, err = f.postSvc.List(context.Background(), alice, "", math.MaxInt/MaxPageLimit+1, MaxPageLimit)
	require.NoError(t, err)
	require.Empty(t, posts)
}
