package engine

import (
	"fmt"
	"strings"
)

type StageType string

const (
	StageGolden     StageType = "golden"
	StageRising     StageType = "rising"
	StageFull       StageType = "full"
	StageDecreasing StageType = "decreasing"
	StageBlind      StageType = "blind"
)

var StageTypes = []StageType{StageGolden, StageRising, StageFull, StageDecreasing, StageBlind}

func ParseStageType(s string) (StageType, error) {
	for _, t := range StageTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStageType, s)
}

type RuleKind int

const (
	RuleFixed RuleKind = iota
	RuleIncrement
	RuleDecrement
)

func (k RuleKind) String() string {
	switch k {
	case RuleFixed:
		return "fixed"
	case RuleIncrement:
		return "increment"
	case RuleDecrement:
		return "decrement"
	default:
		return "unknown"
	}
}

func ParseRuleKind(s string) (RuleKind, bool) {
	switch s {
	case "fixed":
		return RuleFixed, true
	case "increment":
		return RuleIncrement, true
	case "decrement":
		return RuleDecrement, true
	default:
		return RuleFixed, false
	}
}

// CardRule derives the hand size for a round inside a stage. Cards is only
// meaningful for RuleFixed.
type CardRule struct {
	Kind  RuleKind
	Cards int
}

func Fixed(n int) CardRule { return CardRule{Kind: RuleFixed, Cards: n} }

var (
	Increment = CardRule{Kind: RuleIncrement}
	Decrement = CardRule{Kind: RuleDecrement}
)

type StageSpec struct {
	Type   StageType
	Rounds int
	Rule   CardRule
}

// Blind is a display flag only; blind bidding is allowed in every stage.
func (s StageSpec) Blind() bool { return s.Type == StageBlind }

type StageConfig struct {
	Stages []StageSpec
}

func (c StageConfig) TotalRounds() int {
	total := 0
	for _, s := range c.Stages {
		total += s.Rounds
	}
	return total
}

// Validate checks that every round of every stage resolves to a hand size
// in [1, maxCards].
func (c StageConfig) Validate(maxCards int) error {
	if len(c.Stages) == 0 {
		return fmt.Errorf("%w: no stages", ErrInvalidStages)
	}
	for i, s := range c.Stages {
		if s.Rounds < 1 {
			return fmt.Errorf("%w: stage %d has %d rounds", ErrInvalidStages, i+1, s.Rounds)
		}
		lo, hi := ruleBounds(s, maxCards)
		if lo < 1 || hi > maxCards {
			return fmt.Errorf("%w: stage %d deals %d..%d cards, max %d", ErrInvalidStages, i+1, lo, hi, maxCards)
		}
	}
	return nil
}

func ruleBounds(s StageSpec, maxCards int) (int, int) {
	switch s.Rule.Kind {
	case RuleIncrement:
		return 2, s.Rounds + 1
	case RuleDecrement:
		return maxCards - s.Rounds + 1, maxCards
	default:
		return s.Rule.Cards, s.Rule.Cards
	}
}

var maxCardsTable = map[int]map[int]int{
	36: {2: 18, 3: 12, 4: 9, 5: 7, 6: 6},
	54: {2: 26, 3: 17, 4: 13, 5: 10, 6: 8},
}

// MaxCards is the largest hand the deck allows for the player count. Unknown
// decks use the 36-card table and unknown player counts the 4-player entry.
func MaxCards(playerCount, deckSize int) int {
	table, ok := maxCardsTable[deckSize]
	if !ok {
		table = maxCardsTable[DefaultDeckSize]
	}
	if n, ok := table[playerCount]; ok {
		return n
	}
	return table[4]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func StageRounds(t StageType, playerCount, deckSize int) int {
	switch t {
	case StageRising, StageDecreasing:
		return MaxCards(playerCount, deckSize) - 1
	default:
		return clamp(playerCount, 2, 6)
	}
}

func StageRule(t StageType, playerCount, deckSize int) CardRule {
	switch t {
	case StageGolden:
		return Fixed(1)
	case StageRising:
		return Increment
	case StageDecreasing:
		return Decrement
	default:
		return Fixed(MaxCards(playerCount, deckSize))
	}
}

// builtinShape holds the three numbers that vary across the built-in
// tables: rounds of each one-card and max-card stage, rounds of the
// rising/decreasing stages, and the card count of the max-card stages.
type builtinShape struct {
	fixedRounds int
	rampRounds  int
	fullCards   int
}

var builtinTable = map[int]map[int]builtinShape{
	36: {
		2: {2, 17, 18},
		3: {3, 9, 11},
		4: {4, 7, 9},
		5: {5, 5, 7},
		6: {6, 4, 6},
	},
	54: {
		2: {2, 24, 26},
		3: {3, 15, 17},
		4: {4, 11, 13},
		5: {5, 8, 10},
		6: {6, 6, 8},
	},
}

func (b builtinShape) config() StageConfig {
	return StageConfig{Stages: []StageSpec{
		{Type: StageGolden, Rounds: b.fixedRounds, Rule: Fixed(1)},
		{Type: StageRising, Rounds: b.rampRounds, Rule: Increment},
		{Type: StageFull, Rounds: b.fixedRounds, Rule: Fixed(b.fullCards)},
		{Type: StageDecreasing, Rounds: b.rampRounds, Rule: Decrement},
		{Type: StageGolden, Rounds: b.fixedRounds, Rule: Fixed(1)},
		{Type: StageBlind, Rounds: b.fixedRounds, Rule: Fixed(b.fullCards)},
	}}
}

// ResolveStages returns the stage config for a game. A non-empty custom
// list always wins. Otherwise the built-in table is used; the boolean is
// false when the combination is missing and the 36-card 4-player config
// was substituted.
func ResolveStages(playerCount, deckSize int, custom []StageType) (StageConfig, bool) {
	if len(custom) > 0 {
		cfg := StageConfig{Stages: make([]StageSpec, 0, len(custom))}
		for _, t := range custom {
			cfg.Stages = append(cfg.Stages, StageSpec{
				Type:   t,
				Rounds: StageRounds(t, playerCount, deckSize),
				Rule:   StageRule(t, playerCount, deckSize),
			})
		}
		return cfg, true
	}
	if shape, ok := builtinTable[deckSize][playerCount]; ok {
		return shape.config(), true
	}
	return builtinTable[DefaultDeckSize][4].config(), false
}

const (
	PresetDefault = "default"
	PresetGolden  = "golden"
	PresetSimple  = "simple"
	PresetCustom  = "custom"
)

var presets = map[string][]StageType{
	PresetDefault: nil,
	PresetCustom:  {StageGolden, StageRising, StageFull, StageDecreasing, StageGolden, StageBlind},
	PresetGolden:  {StageGolden, StageGolden, StageGolden, StageBlind},
	PresetSimple:  {StageGolden, StageRising, StageFull, StageDecreasing, StageGolden},
}

// PresetStages returns the stage list of a named preset. The default preset
// is the empty list, which selects the built-in table.
func PresetStages(name string) ([]StageType, error) {
	stages, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown preset %q", ErrInvalidStages, name)
	}
	return append([]StageType(nil), stages...), nil
}

func stageLabel(t StageType) string {
	switch t {
	case StageGolden:
		return "Golden"
	case StageRising:
		return "Rising"
	case StageFull:
		return "Full"
	case StageDecreasing:
		return "Decreasing"
	case StageBlind:
		return "Blind"
	default:
		return strings.ToUpper(string(t))
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// DescribeStage renders a one-line summary such as
// "Rising: 7 rounds, 2 to 8 cards".
func DescribeStage(s StageSpec, maxCards int) string {
	rounds := plural(s.Rounds, "round")
	switch s.Rule.Kind {
	case RuleIncrement:
		return fmt.Sprintf("%s: %s, %d to %d cards", stageLabel(s.Type), rounds, 2, s.Rounds+1)
	case RuleDecrement:
		return fmt.Sprintf("%s: %s, %d to %d cards", stageLabel(s.Type), rounds, maxCards, maxCards-s.Rounds+1)
	default:
		return fmt.Sprintf("%s: %s with %s", stageLabel(s.Type), rounds, plural(s.Rule.Cards, "card"))
	}
}
