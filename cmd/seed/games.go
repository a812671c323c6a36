package main

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/utafrali/GameCatalog/internal/domain"
)

// genreDef is one genre and its share of the generated catalog.
type genreDef struct {
	Name   string
	Weight float64
	Nouns  []string
}

var genres = []genreDef{
	{"RPG", 0.22, []string{"Chronicles", "Legends", "Saga", "Oath", "Crown"}},
	{"Action", 0.20, []string{"Strike", "Fury", "Rampage", "Vendetta", "Edge"}},
	{"Adventure", 0.15, []string{"Voyage", "Odyssey", "Expedition", "Quest", "Lantern"}},
	{"Strategy", 0.12, []string{"Dominion", "Empire", "Frontier", "Tactics", "Command"}},
	{"FPS", 0.10, []string{"Breach", "Recon", "Outpost", "Sniper", "Zero"}},
	{"Puzzle", 0.08, []string{"Blocks", "Gears", "Mirrors", "Tiles", "Knots"}},
	{"Simulation", 0.07, []string{"Farm", "Harbor", "Railway", "City", "Orbit"}},
	{"Sports", 0.06, []string{"League", "Cup", "Derby", "Rally", "Slam"}},
}

var adjectives = []string{
	"Dark", "Silent", "Broken", "Golden", "Lost", "Iron", "Hidden", "Crimson",
	"Eternal", "Frozen", "Savage", "Neon", "Ancient", "Hollow", "Radiant",
}

var blurbs = []string{
	"An open world built around exploration and discovery.",
	"A tightly paced campaign with branching choices.",
	"Cooperative play for up to four friends.",
	"A hand-drawn world full of secrets.",
	"Competitive online matches with ranked seasons.",
	"A slow-burn story told across three acts.",
}

// generateGames builds n deterministic games from rng.
func generateGames(rng *rand.Rand, n int, now time.Time) []domain.Game {
	games := make([]domain.Game, 0, n)
	for i := 0; i < n; i++ {
		g := pickGenre(rng)
		name := fmt.Sprintf("%s %s %d",
			adjectives[rng.Intn(len(adjectives))],
			g.Nouns[rng.Intn(len(g.Nouns))],
			i+1,
		)
		released := now.AddDate(0, 0, -rng.Intn(15*365))

		games = append(games, domain.Game{
			CreatedAt:     now,
			Code:          int64(100000 + i),
			Name:          name,
			Description:   describe(rng, name, g.Name),
			ReleaseDate:   released,
			PurchaseCount: int64(rng.ExpFloat64() * 2500),
			AverageRating: domain.RoundRating(1 + rng.Float64()*4),
			Genre:         g.Name,
		})
	}
	return games
}

func pickGenre(rng *rand.Rand) genreDef {
	r := rng.Float64()
	var acc float64
	for _, g := range genres {
		acc += g.Weight
		if r < acc {
			return g
		}
	}
	return genres[len(genres)-1]
}

func describe(rng *rand.Rand, name, genre string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is a %s game. ", name, strings.ToLower(genre))
	b.WriteString(blurbs[rng.Intn(len(blurbs))])
	s := b.String()
	if len(s) > domain.MaxDescriptionLength {
		s = s[:domain.MaxDescriptionLength]
	}
	return s
}

// batches splits n items into [start, end) ranges of at most size.
func batches(n, size int) [][2]int {
	out := make([][2]int, 0, int(math.Ceil(float64(n)/float64(size))))
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}
