package classify

import "github.com/alanyoungcy/marketfeed/internal/domain"

var (
	esportsPhrases    = newPhraseSet(esportsKeywords)
	otherSportPhrases = newPhraseSet(otherSportKeywords)
	nflPhrases        = newPhraseSet([]string{"nfl"})
	teamPhrases       = buildTeamPhrases()
	teamAbbrs         = buildTeamAbbrs()
)

func buildTeamPhrases() phraseSet {
	var names []string
	for _, t := range NFLTeams {
		names = append(names, t.Name, t.City)
	}
	return newPhraseSet(names)
}

func buildTeamAbbrs() map[string]bool {
	out := map[string]bool{}
	for _, t := range NFLTeams {
		for _, a := range t.Abbrs {
			if !ambiguousAbbrs[a] {
				out[a] = true
			}
		}
	}
	return out
}

// NFLVerdict explains the content gate's decision for a market.
type NFLVerdict struct {
	NFL    bool
	Reason string
}

// IsNFL applies the NFL content gate to a market's combined title and slug
// text. Esports exclusion runs first and overrides any team match; a
// positive needs the "nfl" token or a team name, city or unambiguous slug
// abbreviation, and no other-sport keyword.
func IsNFL(m *domain.Market) NFLVerdict {
	text := normalize(m.SearchText())

	if kw, ok := esportsPhrases.match(text); ok {
		return NFLVerdict{Reason: "esports:" + kw}
	}

	evidence := ""
	if nflPhrases.any(text) {
		evidence = "nfl"
	} else if kw, ok := teamPhrases.match(text); ok {
		evidence = "team:" + kw
	} else if abbr, ok := slugAbbr(m.Slug, m.EventSlug); ok {
		evidence = "abbr:" + abbr
	}
	if evidence == "" {
		return NFLVerdict{Reason: "no nfl evidence"}
	}

	if kw, ok := otherSportPhrases.match(nflTermReplacer.Replace(text)); ok {
		return NFLVerdict{Reason: "other sport:" + kw}
	}
	return NFLVerdict{NFL: true, Reason: evidence}
}

func slugAbbr(slugs ...string) (string, bool) {
	for _, s := range slugs {
		for _, tok := range slugTokens(s) {
			if teamAbbrs[tok] {
				return tok, true
			}
		}
	}
	return "", false
}

// IsExcludedSport reports whether the market's text hits the esports or
// other-sport exclusion lists.
func IsExcludedSport(m *domain.Market) bool {
	text := normalize(m.SearchText())
	return esportsPhrases.any(text) || otherSportPhrases.any(nflTermReplacer.Replace(text))
}
