package classify

import "strings"

// Team is one NFL franchise as it appears in upstream titles and slugs.
type Team struct {
	Name  string
	City  string
	Abbrs []string
}

// NFLTeams is the fixed 32-team list used by the NFL content gate.
var NFLTeams = []Team{
	{Name: "cardinals", City: "arizona", Abbrs: []string{"ari", "arz"}},
	{Name: "falcons", City: "atlanta", Abbrs: []string{"atl"}},
	{Name: "ravens", City: "baltimore", Abbrs: []string{"bal"}},
	{Name: "bills", City: "buffalo", Abbrs: []string{"buf"}},
	{Name: "panthers", City: "carolina", Abbrs: []string{"car"}},
	{Name: "bears", City: "chicago", Abbrs: []string{"chi"}},
	{Name: "bengals", City: "cincinnati", Abbrs: []string{"cin"}},
	{Name: "browns", City: "cleveland", Abbrs: []string{"cle"}},
	{Name: "cowboys", City: "dallas", Abbrs: []string{"dal"}},
	{Name: "broncos", City: "denver", Abbrs: []string{"den"}},
	{Name: "lions", City: "detroit", Abbrs: []string{"det"}},
	{Name: "packers", City: "green bay", Abbrs: []string{"gb", "gnb"}},
	{Name: "texans", City: "houston", Abbrs: []string{"hou"}},
	{Name: "colts", City: "indianapolis", Abbrs: []string{"ind"}},
	{Name: "jaguars", City: "jacksonville", Abbrs: []string{"jax", "jac"}},
	{Name: "chiefs", City: "kansas city", Abbrs: []string{"kc", "kan"}},
	{Name: "raiders", City: "las vegas", Abbrs: []string{"lv", "lvr"}},
	{Name: "chargers", City: "los angeles", Abbrs: []string{"lac"}},
	{Name: "rams", City: "los angeles", Abbrs: []string{"lar", "la"}},
	{Name: "dolphins", City: "miami", Abbrs: []string{"mia"}},
	{Name: "vikings", City: "minnesota", Abbrs: []string{"min"}},
	{Name: "patriots", City: "new england", Abbrs: []string{"ne", "nwe"}},
	{Name: "saints", City: "new orleans", Abbrs: []string{"no", "nor"}},
	{Name: "giants", City: "new york", Abbrs: []string{"nyg"}},
	{Name: "jets", City: "new york", Abbrs: []string{"nyj"}},
	{Name: "eagles", City: "philadelphia", Abbrs: []string{"phi"}},
	{Name: "steelers", City: "pittsburgh", Abbrs: []string{"pit"}},
	{Name: "49ers", City: "san francisco", Abbrs: []string{"sf", "sfo"}},
	{Name: "seahawks", City: "seattle", Abbrs: []string{"sea"}},
	{Name: "buccaneers", City: "tampa bay", Abbrs: []string{"tb", "tam"}},
	{Name: "titans", City: "tennessee", Abbrs: []string{"ten"}},
	{Name: "commanders", City: "washington", Abbrs: []string{"was", "wsh"}},
}

// ambiguousAbbrs are abbreviations that collide with ordinary slug words
// and are never accepted as team evidence on their own.
var ambiguousAbbrs = map[string]bool{
	"no":  true,
	"ne":  true,
	"la":  true,
	"was": true,
}

// esportsKeywords are checked before anything else; a hit excludes the
// market from every NFL view regardless of team-name matches.
var esportsKeywords = []string{
	"esports", "e-sports", "esport",
	"league of legends", "lol",
	"dota", "dota 2",
	"counter-strike", "counter strike", "csgo", "cs2", "cs:go",
	"valorant", "overwatch", "call of duty", "cod league",
	"rocket league", "rainbow six", "starcraft", "fortnite",
	"madden", "fifa", "ea fc",
	"lck", "lec", "lcs", "vct", "blast premier", "iem",
}

// otherSportKeywords exclude markets for sports that share team or city
// names with the NFL.
var otherSportKeywords = []string{
	// basketball
	"nba", "wnba", "basketball", "march madness", "final four",
	// hockey
	"nhl", "hockey", "stanley cup",
	// baseball
	"mlb", "baseball", "world series",
	// soccer
	"soccer", "premier league", "epl", "la liga", "laliga", "serie a",
	"bundesliga", "ligue 1", "champions league", "ucl", "mls",
	"europa league", "world cup", "fc",
	// college football
	"ncaa", "ncaaf", "cfb", "college football", "heisman",
	"sec championship", "big ten", "big 12", "acc championship",
	"cfp", "college football playoff", "bowl game",
	// other
	"ufc", "mma", "boxing", "tennis", "atp", "wta", "golf", "pga",
	"f1", "formula 1", "nascar", "cricket", "ipl", "rugby",
	"cfl", "xfl", "ufl",
	// nicknames from other leagues that appear without a league token
	"lakers", "celtics", "knicks", "warriors", "clippers", "nets", "bulls",
	"heat", "mavericks", "nuggets", "pistons", "rockets", "timberwolves",
	"pelicans", "76ers", "sixers", "raptors", "bucks", "suns", "thunder",
	"blazers", "trail blazers", "spurs", "grizzlies", "hornets", "magic",
	"cavaliers", "pacers", "hawks", "wizards", "kings", "jazz",
	"yankees", "dodgers", "red sox", "cubs", "white sox", "mets", "astros",
	"braves", "phillies", "padres", "mariners", "orioles", "guardians",
	"blue jays", "twins", "brewers", "tigers", "royals", "pirates",
	"reds", "marlins", "nationals", "athletics", "rays", "rockies",
	"diamondbacks", "angels", "rangers",
	"bruins", "maple leafs", "canadiens", "penguins", "flyers", "capitals",
	"blackhawks", "red wings", "oilers", "flames", "canucks", "avalanche",
	"blues", "predators", "lightning", "hurricanes", "islanders",
	"devils", "sabres", "senators", "ducks", "sharks", "kraken",
	"golden knights", "coyotes", "utah hockey", "mammoth",
	"wild", "stars", "blue jackets",
}

// nflTermReplacer folds NFL phrases that contain an other-league nickname
// into a single token before the other-sport check.
var nflTermReplacer = strings.NewReplacer(" wild card ", " wildcard ")

// awardKeywords mark season-long award and leader markets, which are
// always props.
var awardKeywords = []string{
	"mvp", "most valuable player",
	"rookie of the year", "offensive rookie", "defensive rookie", "roy",
	"offensive player of the year", "defensive player of the year",
	"opoy", "dpoy", "coach of the year", "comeback player",
	"leader", "leaders", "award",
	"most passing", "most rushing", "most receiving", "most sacks",
	"most touchdowns", "most interceptions",
}

// gameIndicators mark a market as being about a single game's core
// outcome: moneyline, spread or total.
var gameIndicators = []string{
	"vs", "versus", "@",
	"moneyline", "money line", "spread", "handicap",
	"total", "totals", "o/u", "over/under", "over under",
}

// championshipKeywords are props unless a week or matchup qualifier is
// present.
var championshipKeywords = []string{
	"champion", "champions", "championship", "super bowl winner", "win the super bowl",
	"division winner", "win the division", "conference winner", "make the playoffs",
}
