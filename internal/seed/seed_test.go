package seed

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"feedline/internal/models"
	"feedline/internal/service"
	"feedline/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	timeline *testutil.TimelineStub
	graph    *testutil.FollowGraphStub
	seeder   *Seeder
}

func newFixture(seed int64) *fixture {
	timeline := testutil.NewTimelineStub()
	graph := testutil.NewFollowGraphStub()
	posts := testutil.NewPostStoreStub()
	timelines := service.NewTimelineService(timeline, graph, posts)
	return &fixture{
		timeline: timeline,
		graph:    graph,
		seeder: NewSeeder(
			service.NewPostService(posts, timelines),
			service.NewFollowService(graph),
			NewFactory(seed),
		),
	}
}

func TestFactory(t *testing.T) {
	f := NewFactory(42)

	names := f.Usernames(50)
	seen := map[string]bool{}
	for _, n := range names {
		assert.False(t, seen[n], "duplicate username %s", n)
		seen[n] = true
		assert.Equal(t, strings.ToLower(n), n)
	}

	for range 20 {
		content := f.PostContent()
		assert.NotEmpty(t, strings.TrimSpace(content))
		assert.LessOrEqual(t, utf8.RuneCountInString(content), models.MaxPostLength)
	}
}

func TestSeedSocialMesh(t *testing.T) {
	fx := newFixture(7)

	res, err := fx.seeder.SeedSocialMesh(context.Background(), Options{
		NumUsers:          8,
		NumPosts:          30,
		FollowProbability: 0.3,
		Celebrities:       1,
	})
	require.NoError(t, err)
	assert.Len(t, res.Users, 8)
	assert.Equal(t, 30, res.Posts)

	celebrity := res.Users[0]
	followers, err := fx.graph.GetFollowers(context.Background(), celebrity)
	require.NoError(t, err)
	assert.Len(t, followers, 7)

	total := 0
	for _, u := range res.Users {
		total += len(fx.timeline.PostIDs(u))
	}
	assert.GreaterOrEqual(t, total, 30)
}

func TestLoadScenarioAndApply(t *testing.T) {
	sc, err := LoadScenario(strings.NewReader(`
users: [alice, bob, carol]
follows:
  - {follower: bob, following: alice}
  - {follower: carol, following: alice}
posts:
  - {author: alice, content: "first"}
  - {author: alice, content: "second", imageUrl: "https://cdn.example.com/x.png"}
  - {author: bob, content: "hi"}
`))
	require.NoError(t, err)
	assert.Len(t, sc.Posts, 3)

	fx := newFixture(1)
	res, err := fx.seeder.ApplyScenario(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Follows)
	assert.Equal(t, 3, res.Posts)

	assert.Len(t, fx.timeline.PostIDs("carol"), 2)
	assert.Len(t, fx.timeline.PostIDs("bob"), 3)
	assert.Len(t, fx.timeline.PostIDs("alice"), 2)
}

func TestLoadScenarioRejectsUnknownUsers(t *testing.T) {
	_, err := LoadScenario(strings.NewReader(`
users: [alice]
posts:
  - {author: mallory, content: "x"}
`))
	require.Error(t, err)

	_, err = LoadScenario(strings.NewReader(`users: [alice]
unexpected: true
`))
	require.Error(t, err)
}

func TestLoadScenarioFile(t *testing.T) {
	sc, err := LoadScenarioFile("testdata/celebrity.yml")
	require.NoError(t, err)

	fx := newFixture(3)
	_, err = fx.seeder.ApplyScenario(context.Background(), sc)
	require.NoError(t, err)

	// ann sees star's two posts, ben's post and her own.
	assert.Len(t, fx.timeline.PostIDs("ann"), 4)
	assert.Len(t, fx.timeline.PostIDs("dan"), 2)
}
