package service

import (
	"context"
	"errors"
	"io"
	"sort"

	"artfeed/internal/models"
	"artfeed/internal/repository"
)

// userRepoStub is an in-memory UserRepository for exercising AuthService
// without a database.
type userRepoStub struct {
	users  map[string]*models.User
	nextID uint
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: make(map[string]*models.User)}
}

func (s *userRepoStub) Create(_ context.Context, user *models.User) error {
	if _, exists := s.users[user.Username]; exists {
		return models.NewConflictError("Username already taken")
	}
	s.nextID++
	user.ID = s.nextID
	cp := *user
	s.users[user.Username] = &cp
	return nil
}

func (s *userRepoStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.NewNotFoundError("User", id)
}

func (s *userRepoStub) GetByUsername(_ context.Context, username string) (*models.User, error) {
	u, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *userRepoStub) CountAdmins(_ context.Context) (int64, error) {
	var n int64
	for _, u := range s.users {
		if u.IsAdmin {
			n++
		}
	}
	return n, nil
}

func (s *userRepoStub) List(_ context.Context, _, _ int) ([]models.User, error) {
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

// postRepoStub is an in-memory PostRepository tracking likes per user so the
// services can be tested in isolation. likedIDCalls counts GetLikedPostIDs
// invocations to verify the feed annotation stays batched.
type postRepoStub struct {
	posts        map[uint]*models.Post
	likes        map[[2]uint]bool
	nextID       uint
	likedIDCalls int
	deleteCalls  int
}

func newPostRepoStub() *postRepoStub {
	return &postRepoStub{
		posts: make(map[uint]*models.Post),
		likes: make(map[[2]uint]bool),
	}
}

func (s *postRepoStub) Create(_ context.Context, post *models.Post) error {
	s.nextID++
	post.ID = s.nextID
	cp := *post
	s.posts[post.ID] = &cp
	return nil
}

func (s *postRepoStub) likeCount(postID uint) int {
	var n int
	for key, ok := range s.likes {
		if ok && key[1] == postID {
			n++
		}
	}
	return n
}

func (s *postRepoStub) GetByID(_ context.Context, id uint, viewerID uint) (*models.Post, error) {
	p, ok := s.posts[id]
	if !ok {
		return nil, models.NewNotFoundError("Post", id)
	}
	cp := *p
	cp.LikeCount = s.likeCount(id)
	if viewerID != 0 {
		cp.Liked = s.likes[[2]uint{viewerID, id}]
	}
	return &cp, nil
}

func (s *postRepoStub) List(_ context.Context, order repository.FeedSort) ([]*models.Post, error) {
	out := make([]*models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		cp := *p
		cp.LikeCount = s.likeCount(p.ID)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if order == repository.SortByLikes && out[i].LikeCount != out[j].LikeCount {
			return out[i].LikeCount > out[j].LikeCount
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *postRepoStub) Delete(_ context.Context, id uint) error {
	s.deleteCalls++
	if _, ok := s.posts[id]; !ok {
		return models.NewNotFoundError("Post", id)
	}
	delete(s.posts, id)
	for key := range s.likes {
		if key[1] == id {
			delete(s.likes, key)
		}
	}
	return nil
}

func (s *postRepoStub) IsLiked(_ context.Context, userID, postID uint) (bool, error) {
	return s.likes[[2]uint{userID, postID}], nil
}

func (s *postRepoStub) GetLikedPostIDs(_ context.Context, userID uint) ([]uint, error) {
	s.likedIDCalls++
	var ids []uint
	for key, ok := range s.likes {
		if ok && key[0] == userID {
			ids = append(ids, key[1])
		}
	}
	return ids, nil
}

func (s *postRepoStub) Like(_ context.Context, userID, postID uint) error {
	s.likes[[2]uint{userID, postID}] = true
	return nil
}

func (s *postRepoStub) Unlike(_ context.Context, userID, postID uint) error {
	delete(s.likes, [2]uint{userID, postID})
	return nil
}

// mediaStoreStub records deletions and can be made to fail them.
type mediaStoreStub struct {
	deleted    []string
	failDelete bool
}

func (m *mediaStoreStub) Save(_ context.Context, _ io.Reader, suggestedName string) (string, error) {
	return "stub_" + suggestedName, nil
}

func (m *mediaStoreStub) Delete(_ context.Context, ref string) error {
	if m.failDelete {
		return errors.New("disk on fire")
	}
	m.deleted = append(m.deleted, ref)
	return nil
}

func (m *mediaStoreStub) Path(ref string) (string, error) {
	return "/dev/null/" + ref, nil
}
