package audit

import "github.com/shopspring/decimal"

// Tier is an economic classification bucket based on USD value held.
// Ordering is significant: higher values outrank lower ones.
type Tier int

const (
	TierUntiered Tier = iota
	TierShrimp
	TierFish
	TierDolphin
	TierShark
	TierWhale
)

// USD floors for each tier, inclusive. First matching floor from highest to
// lowest wins.
var (
	WhaleFloor   = decimal.NewFromInt(250_000)
	SharkFloor   = decimal.NewFromInt(100_000)
	DolphinFloor = decimal.NewFromInt(25_000)
	FishFloor    = decimal.NewFromInt(1_000)
	ShrimpFloor  = decimal.NewFromInt(100)
)

// String returns the lowercase tier name used in persisted rows and
// response payloads.
func (t Tier) String() string {
	switch t {
	case TierShrimp:
		return "shrimp"
	case TierFish:
		return "fish"
	case TierDolphin:
		return "dolphin"
	case TierShark:
		return "shark"
	case TierWhale:
		return "whale"
	default:
		return "untiered"
	}
}

// TierFromString parses a persisted tier name. Unknown names map to
// TierUntiered.
func TierFromString(s string) Tier {
	switch s {
	case "shrimp":
		return TierShrimp
	case "fish":
		return TierFish
	case "dolphin":
		return TierDolphin
	case "shark":
		return TierShark
	case "whale":
		return TierWhale
	default:
		return TierUntiered
	}
}

// TierOf classifies a USD value into a tier. A nil value or a value below
// the Shrimp floor is untiered. This is a pure, total function.
func TierOf(usd *decimal.Decimal) Tier {
	if usd == nil {
		return TierUntiered
	}
	switch {
	case usd.GreaterThanOrEqual(WhaleFloor):
		return TierWhale
	case usd.GreaterThanOrEqual(SharkFloor):
		return TierShark
	case usd.GreaterThanOrEqual(DolphinFloor):
		return TierDolphin
	case usd.GreaterThanOrEqual(FishFloor):
		return TierFish
	case usd.GreaterThanOrEqual(ShrimpFloor):
		return TierShrimp
	default:
		return TierUntiered
	}
}
