package seed

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a hand-written data set, loaded from YAML:
//
//	users: [alice, bob]
//	follows:
//	  - {follower: bob, following: alice}
//	posts:
//	  - {author: alice, content: "hello"}
type Scenario struct {
	Users   []string         `yaml:"users"`
	Follows []ScenarioFollow `yaml:"follows"`
	Posts   []ScenarioPost   `yaml:"posts"`
}

type ScenarioFollow struct {
	Follower  string `yaml:"follower"`
	Following string `yaml:"following"`
}

type ScenarioPost struct {
	Author   string `yaml:"author"`
	Content  string `yaml:"content"`
	ImageURL string `yaml:"imageUrl"`
}

// LoadScenario decodes and validates a scenario.
func LoadScenario(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}

	known := make(map[string]bool, len(sc.Users))
	for _, u := range sc.Users {
		known[u] = true
	}
	for i, f := range sc.Follows {
		if !known[f.Follower] || !known[f.Following] {
			return nil, fmt.Errorf("follow %d references unknown user", i)
		}
	}
	for i, p := range sc.Posts {
		if !known[p.Author] {
			return nil, fmt.Errorf("post %d has unknown author %q", i, p.Author)
		}
	}
	return &sc, nil
}

// LoadScenarioFile reads a scenario from path.
func LoadScenarioFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadScenario(f)
}
