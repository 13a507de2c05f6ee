package domain

// Asset is one tradeable unit: a species plus a gender letter.
// Key is "<Name>|<Gender>" with Gender one of M, F, ?, G.
type Asset struct {
	Key      string
	Name     string
	Gender   string
	BareName string
	BaseName string
	IsBase   bool
}

// SeedRange is an operator-entered wealth range for an asset,
// in raw "x" units after unit expansion.
type SeedRange struct {
	MinX      float64
	MaxX      float64
	MidX      float64
	TierIndex int
	TierID    string
	TierLabel string
}

type SeedRow struct {
	AssetKey string
	Range    SeedRange
}

// Bundle is one side of a matchup. AssetKeys are deduplicated and
// canonically sorted; range fields are elementwise sums over members.
// Gender is set only when every member shares it.
type Bundle struct {
	AssetKeys []string
	Key       string
	MinX      float64
	MaxX      float64
	MidX      float64
	TierIndex int
	Gender    string
}

// PollRun is one posted, time-boxed poll. ClosedAtMs == 0 means the
// run is still open. Result is one of "left", "right", "tie", "error".
type PollRun struct {
	ID             string
	GuildID        string
	ChannelID      string
	MessageID      string
	PairKey        string
	LeftAssetKeys  []string
	RightAssetKeys []string
	StartedAtMs    int64
	EndsAtMs       int64
	ClosedAtMs     int64
	VotesLeft      int
	VotesRight     int
	Result         string
	AffectsScore   bool
}

const (
	ResultLeft  = "left"
	ResultRight = "right"
	ResultTie   = "tie"
	ResultError = "error"
)

// PairCooldown blocks a canonical bundle pair from being re-offered
// before NextEligibleAtMs.
type PairCooldown struct {
	PairKey          string
	LeftBundleKey    string
	RightBundleKey   string
	LastPolledAtMs   int64
	NextEligibleAtMs int64
	PollsCount       int
}

// AssetScore is the per-asset Elo record. Elo starts at 1500.
type AssetScore struct {
	AssetKey     string
	Elo          float64
	Wins         int
	Losses       int
	Ties         int
	PollsCount   int
	VotesFor     int
	VotesAgainst int
	LastPollAtMs int64
}

type GuildSettings struct {
	GuildID          string
	Enabled          bool
	ChannelID        string
	CadenceMinutes   int
	PollMinutes      int
	PairCooldownDays int
	MinVotes         int
}

// SettingsPatch carries partial updates; nil fields are left untouched.
type SettingsPatch struct {
	Enabled          *bool
	ChannelID        *string
	CadenceMinutes   *int
	PollMinutes      *int
	PairCooldownDays *int
	MinVotes         *int
}

type SchedulerLog struct {
	ID        string
	GuildID   string
	RunAtMs   int64
	Status    string
	Reason    string
	PairKey   string
	MessageID string
}
