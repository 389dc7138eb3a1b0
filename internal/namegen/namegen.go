// Package namegen produces memorable container image names.
package namegen

import (
	"fmt"
	"math/rand/v2"
	"regexp"
)

var adjectives = []string{
	"happy", "clever", "brave", "gentle", "swift",
	"bright", "calm", "bold", "quiet", "eager",
	"lucky", "witty", "kind", "wise", "free",
	"wild", "cool", "warm", "pure", "noble",
}

var nouns = []string{
	"turtle", "falcon", "river", "mountain", "forest",
	"ocean", "wind", "star", "moon", "sun",
	"cloud", "thunder", "valley", "desert", "tiger",
	"eagle", "dolphin", "wolf", "bear", "fox",
}

var namePattern = regexp.MustCompile(`^cj-[a-z]+-[a-z]+$`)

// Generate returns a fresh image name of the form cj-adjective-noun.
func Generate() string {
	return fmt.Sprintf("cj-%s-%s", adjectives[rand.IntN(len(adjectives))], nouns[rand.IntN(len(nouns))])
}

// IsValid reports whether name looks like a Generate output.
func IsValid(name string) bool {
	return namePattern.MatchString(name)
}
