// Command seed populates the database with demo users, follows and posts.
package main

import (
	"context"
	"flag"
	"log"

	"feedline/internal/bootstrap"
	"feedline/internal/config"
	"feedline/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	followProb := flag.Float64("follow-probability", 0.1, "Chance that any user follows any other user")
	celebrities := flag.Int("celebrities", 2, "Users followed by everyone")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	scenario := flag.String("scenario", "", "YAML scenario file (ignores the other flags)")
	flag.Parse()

	log.Println("🌱 Feedline Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Seed writes fan out in-process so timelines are complete when we exit.
	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{InlineFanout: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = rt.Close() }()

	s := seed.NewSeeder(rt.PostService, rt.FollowService, seed.NewFactory(*randSeed))
	ctx := context.Background()

	var res *seed.Result
	if *scenario != "" {
		log.Printf("Applying scenario: %s", *scenario)
		sc, err := seed.LoadScenarioFile(*scenario)
		if err != nil {
			log.Fatalf("❌ Scenario load failed: %v", err)
		}
		res, err = s.ApplyScenario(ctx, sc)
		if err != nil {
			log.Fatalf("❌ Scenario seeding failed: %v", err)
		}
	} else {
		log.Printf("Target: %d users, %d posts, follow probability %.2f", *numUsers, *numPosts, *followProb)
		res, err = s.SeedSocialMesh(ctx, seed.Options{
			NumUsers:          *numUsers,
			NumPosts:          *numPosts,
			FollowProbability: *followProb,
			Celebrities:       *celebrities,
		})
		if err != nil {
			log.Fatalf("❌ Seeding failed: %v", err)
		}
	}

	log.Printf("✨ Done: %d users, %d follows, %d posts", len(res.Users), res.Follows, res.Posts)
}
