// Package seed populates a feedline deployment with demo users, follows and
// posts. Posts go through the normal create path so timelines are filled by
// fanout. Intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"feedline/internal/models"
	"feedline/internal/observability"
	"feedline/internal/service"
)

// PostCreator creates posts through the write path.
type PostCreator interface {
	CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error)
}

// FollowCreator creates follow edges.
type FollowCreator interface {
	Follow(ctx context.Context, followerID, followingID string) (*models.Follow, error)
}

// Options configuration for the seeder
type Options struct {
	NumUsers int
	NumPosts int

	// FollowProbability is the chance any user follows any other user.
	FollowProbability float64

	// Celebrities are the first N users; everyone follows them.
	Celebrities int
}

// Result counts what a seeding run created.
type Result struct {
	Users   []string
	Follows int
	Posts   int
}

// Seeder creates demo data through the services.
type Seeder struct {
	posts   PostCreator
	follows FollowCreator
	factory *Factory
}

func NewSeeder(posts PostCreator, follows FollowCreator, factory *Factory) *Seeder {
	return &Seeder{posts: posts, follows: follows, factory: factory}
}

// SeedSocialMesh creates users, a random follow graph and posts.
func (s *Seeder) SeedSocialMesh(ctx context.Context, opts Options) (*Result, error) {
	if opts.NumUsers < 1 {
		return nil, fmt.Errorf("seed: at least one user is required")
	}
	users := s.factory.Usernames(opts.NumUsers)
	res := &Result{Users: users}

	for i, follower := range users {
		for j, following := range users {
			if i == j {
				continue
			}
			if j >= opts.Celebrities && !s.factory.Chance(opts.FollowProbability) {
				continue
			}
			if _, err := s.follows.Follow(ctx, follower, following); err != nil {
				if models.IsCode(err, models.CodeConflict) {
					continue
				}
				return res, fmt.Errorf("follow %s -> %s: %w", follower, following, err)
			}
			res.Follows++
		}
	}

	for range opts.NumPosts {
		_, err := s.posts.CreatePost(ctx, service.CreatePostInput{
			AuthorID: s.factory.Pick(users),
			Content:  s.factory.PostContent(),
			ImageRef: s.factory.ImageRef(),
		})
		if err != nil {
			return res, fmt.Errorf("create post: %w", err)
		}
		res.Posts++
	}

	observability.GlobalLogger.InfoContext(ctx, "seeding complete",
		slog.Int("users", len(res.Users)),
		slog.Int("follows", res.Follows),
		slog.Int("posts", res.Posts),
	)
	return res, nil
}

// ApplyScenario creates the follows and posts of sc in file order.
func (s *Seeder) ApplyScenario(ctx context.Context, sc *Scenario) (*Result, error) {
	res := &Result{Users: sc.Users}
	for _, f := range sc.Follows {
		if _, err := s.follows.Follow(ctx, f.Follower, f.Following); err != nil && !models.IsCode(err, models.CodeConflict) {
			return res, fmt.Errorf("follow %s -> %s: %w", f.Follower, f.Following, err)
		}
		res.Follows++
	}
	for _, p := range sc.Posts {
		in := service.CreatePostInput{AuthorID: p.Author, Content: p.Content}
		if p.ImageURL != "" {
			img := p.ImageURL
			in.ImageRef = &img
		}
		if _, err := s.posts.CreatePost(ctx, in); err != nil {
			return res, fmt.Errorf("create post by %s: %w", p.Author, err)
		}
		res.Posts++
	}
	return res, nil
}
