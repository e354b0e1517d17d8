package classify

import "github.com/alanyoungcy/marketfeed/internal/domain"

var (
	awardPhrases        = newPhraseSet(awardKeywords)
	gamePhrases         = newPhraseSet(gameIndicators)
	championshipPhrases = newPhraseSet(championshipKeywords)
	willPhrase          = newPhraseSet([]string{"will"})
)

// PropVerdict explains why a market was or was not classified as a prop.
type PropVerdict struct {
	Prop   bool
	Reason string
}

// IsProp is a best-effort text classifier separating season-long and
// player props from a game's core moneyline, spread and total markets.
// It looks at the market question only, since a prop inherits its game's
// "A vs B" event title.
func IsProp(m *domain.Market) PropVerdict {
	q := m.Question
	if q == "" {
		q = m.EventTitle
	}
	text := normalize(q)

	if kw, ok := awardPhrases.match(text); ok {
		return PropVerdict{Prop: true, Reason: "award:" + kw}
	}

	structured := gamePhrases.any(text)
	if kw, ok := championshipPhrases.match(text); ok {
		_, hasWeek := ExtractWeek(q)
		if !structured && !hasWeek {
			return PropVerdict{Prop: true, Reason: "championship:" + kw}
		}
	}

	if structured {
		return PropVerdict{Reason: "game structure"}
	}
	if willPhrase.any(text) {
		return PropVerdict{Prop: true, Reason: "will-question"}
	}
	return PropVerdict{Prop: true, Reason: "no game structure"}
}
