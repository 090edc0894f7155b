package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lbarreto/live-odds-engine/internal/cache"
	"github.com/lbarreto/live-odds-engine/internal/odds"
)

// TTLs por endpoint. Status ao vivo expira mais rápido que pré-jogo.
const (
	ttlLiveFixtures     = 15 * time.Second
	ttlUpcomingFixtures = 300 * time.Second
	ttlStatusLive       = 10 * time.Second
	ttlStatusPrematch   = 60 * time.Second
	ttlLiveOdds         = 5 * time.Second
	ttlPrematchOdds     = 300 * time.Second
	ttlEvents           = 15 * time.Second
	ttlStatistics       = 60 * time.Second
)

// flexString aceita o mesmo campo lógico vindo como string ou número,
// dependendo do endpoint. Normalizado aqui, na borda do fetch, para que
// nenhum consumidor precise re-derivar o formato.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// ---- fixtures ----

type wireFixture struct {
	Fixture struct {
		ID     int64  `json:"id"`
		Date   string `json:"date"`
		Status struct {
			Short   string `json:"short"`
			Elapsed *int   `json:"elapsed"`
		} `json:"status"`
	} `json:"fixture"`
	League struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"league"`
	Teams struct {
		Home struct {
			Name string `json:"name"`
		} `json:"home"`
		Away struct {
			Name string `json:"name"`
		} `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

func (w wireFixture) toFixture() odds.Fixture {
	kickoff, _ := time.Parse(time.RFC3339, w.Fixture.Date)
	elapsed := 0
	if w.Fixture.Status.Elapsed != nil {
		elapsed = *w.Fixture.Status.Elapsed
	}
	score := ""
	if w.Goals.Home != nil && w.Goals.Away != nil {
		score = fmt.Sprintf("%d-%d", *w.Goals.Home, *w.Goals.Away)
	}
	return odds.Fixture{
		ID:        w.Fixture.ID,
		Status:    w.Fixture.Status.Short,
		Elapsed:   elapsed,
		IsLive:    odds.IsLiveStatus(w.Fixture.Status.Short),
		Score:     score,
		HomeTeam:  w.Teams.Home.Name,
		AwayTeam:  w.Teams.Away.Name,
		League:    w.League.Name,
		KickoffAt: kickoff,
	}
}

func (w wireFixture) toStatus(capturedAt time.Time) *odds.MatchStatus {
	elapsed := 0
	if w.Fixture.Status.Elapsed != nil {
		elapsed = *w.Fixture.Status.Elapsed
	}
	score := ""
	if w.Goals.Home != nil && w.Goals.Away != nil {
		score = fmt.Sprintf("%d-%d", *w.Goals.Home, *w.Goals.Away)
	}
	return &odds.MatchStatus{
		FixtureID:  w.Fixture.ID,
		ShortCode:  w.Fixture.Status.Short,
		Elapsed:    elapsed,
		IsLive:     odds.IsLiveStatus(w.Fixture.Status.Short),
		Score:      score,
		HomeTeam:   w.Teams.Home.Name,
		AwayTeam:   w.Teams.Away.Name,
		League:     w.League.Name,
		CapturedAt: capturedAt,
	}
}

// LiveFixtures lista os jogos em andamento
func (c *Client) LiveFixtures(ctx context.Context) ([]odds.Fixture, error) {
	raw, _, err := c.getJSON(ctx, "fixtures", map[string]string{"live": "all"}, ttlLiveFixtures)
	if err != nil {
		return nil, err
	}
	var wire []wireFixture
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &UpstreamError{Endpoint: "fixtures", Err: err}
	}
	out := make([]odds.Fixture, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toFixture())
	}
	return out, nil
}

// UpcomingFixtures lista os jogos do dia que ainda não começaram
func (c *Client) UpcomingFixtures(ctx context.Context) ([]odds.Fixture, error) {
	date := time.Now().UTC().Format("2006-01-02")
	raw, _, err := c.getJSON(ctx, "fixtures", map[string]string{"date": date}, ttlUpcomingFixtures)
	if err != nil {
		return nil, err
	}
	var wire []wireFixture
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &UpstreamError{Endpoint: "fixtures", Err: err}
	}
	out := make([]odds.Fixture, 0, len(wire))
	for _, w := range wire {
		f := w.toFixture()
		if f.Status == "NS" || f.Status == "TBD" {
			out = append(out, f)
		}
	}
	return out, nil
}

// FixtureStatus busca o status corrente de um jogo. Jogos ao vivo são
// re-cacheados com TTL curto depois que o status é conhecido.
func (c *Client) FixtureStatus(ctx context.Context, fixtureID int64) (*odds.MatchStatus, error) {
	params := map[string]string{"id": strconv.FormatInt(fixtureID, 10)}
	raw, fromCache, err := c.getJSON(ctx, "fixtures", params, ttlStatusPrematch)
	if err != nil {
		return nil, err
	}
	var wire []wireFixture
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &UpstreamError{Endpoint: "fixtures", Err: err}
	}
	if len(wire) == 0 {
		return nil, nil
	}

	st := wire[0].toStatus(time.Now())
	if !fromCache && st.IsLive {
		key := cache.BuildKey("api:fixtures", params)
		_ = c.store.Set(ctx, key, raw, ttlStatusLive)
	}
	return st, nil
}

// ---- odds ----

type wireLiveOdds struct {
	Fixture struct {
		ID int64 `json:"id"`
	} `json:"fixture"`
	Status struct {
		Stopped bool `json:"stopped"`
		Blocked bool `json:"blocked"`
	} `json:"status"`
	Odds []struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Values []struct {
			Value     flexString `json:"value"`
			Odd       flexString `json:"odd"`
			Handicap  flexString `json:"handicap"`
			Suspended bool       `json:"suspended"`
		} `json:"values"`
	} `json:"odds"`
}

// LiveOdds retorna os mercados ao vivo de um jogo. Sem odds ao vivo retorna
// lista vazia sem erro: o jogo simplesmente não gera snapshot.
func (c *Client) LiveOdds(ctx context.Context, fixtureID int64) ([]odds.Market, error) {
	params := map[string]string{"fixture": strconv.FormatInt(fixtureID, 10)}
	raw, _, err := c.getJSON(ctx, "odds/live", params, ttlLiveOdds)
	if err != nil {
		return nil, err
	}
	var wire []wireLiveOdds
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &UpstreamError{Endpoint: "odds/live", Err: err}
	}
	if len(wire) == 0 {
		return nil, nil
	}

	entry := wire[0]
	marketSuspended := entry.Status.Stopped || entry.Status.Blocked
	markets := make([]odds.Market, 0, len(entry.Odds))
	for _, m := range entry.Odds {
		market := odds.Market{
			ID:        m.ID,
			Name:      m.Name,
			Suspended: marketSuspended,
			Values:    make([]odds.SelectionValue, 0, len(m.Values)),
		}
		for _, v := range m.Values {
			odd, err := strconv.ParseFloat(string(v.Odd), 64)
			if err != nil {
				continue
			}
			market.Values = append(market.Values, odds.SelectionValue{
				Label:     string(v.Value),
				Odd:       odd,
				Suspended: v.Suspended,
				Handicap:  string(v.Handicap),
			})
		}
		markets = append(markets, market)
	}
	return markets, nil
}

type wirePrematchOdds struct {
	Bookmakers []struct {
		Name string `json:"name"`
		Bets []struct {
			ID     int64  `json:"id"`
			Name   string `json:"name"`
			Values []struct {
				Value flexString `json:"value"`
				Odd   flexString `json:"odd"`
			} `json:"values"`
		} `json:"bets"`
	} `json:"bookmakers"`
}

// PrematchOdds retorna a oferta de cada bookmaker para um jogo pré-jogo
func (c *Client) PrematchOdds(ctx context.Context, fixtureID int64) ([]odds.BookmakerOdds, error) {
	params := map[string]string{"fixture": strconv.FormatInt(fixtureID, 10)}
	raw, _, err := c.getJSON(ctx, "odds", params, ttlPrematchOdds)
	if err != nil {
		return nil, err
	}
	var wire []wirePrematchOdds
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &UpstreamError{Endpoint: "odds", Err: err}
	}
	if len(wire) == 0 {
		return nil, nil
	}

	books := make([]odds.BookmakerOdds, 0, len(wire[0].Bookmakers))
	for _, bk := range wire[0].Bookmakers {
		book := odds.BookmakerOdds{
			Name:    bk.Name,
			Markets: make([]odds.Market, 0, len(bk.Bets)),
		}
		for _, bet := range bk.Bets {
			market := odds.Market{
				ID:     bet.ID,
				Name:   bet.Name,
				Values: make([]odds.SelectionValue, 0, len(bet.Values)),
			}
			for _, v := range bet.Values {
				odd, err := strconv.ParseFloat(string(v.Odd), 64)
				if err != nil {
					continue
				}
				label, handicap := splitHandicap(string(v.Value))
				market.Values = append(market.Values, odds.SelectionValue{
					Label:    label,
					Odd:      odd,
					Handicap: handicap,
				})
			}
			book.Markets = append(book.Markets, market)
		}
		books = append(books, book)
	}
	return books, nil
}

// splitHandicap separa rótulo e linha em valores como "Home -1.5" ou
// "Over 2.5". Valores sem linha ficam com handicap vazio.
func splitHandicap(value string) (label, handicap string) {
	idx := strings.LastIndexByte(value, ' ')
	if idx < 0 {
		return value, ""
	}
	tail := value[idx+1:]
	if _, err := strconv.ParseFloat(tail, 64); err != nil {
		return value, ""
	}
	return value[:idx], tail
}

// ---- events / statistics / lineups ----

type wireEvent struct {
	Time struct {
		Elapsed int `json:"elapsed"`
	} `json:"time"`
	Team struct {
		Name string `json:"name"`
	} `json:"team"`
	Player struct {
		Name string `json:"name"`
	} `json:"player"`
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// FixtureEvents lista os lances do jogo (gols, cartões, pênaltis, VAR)
func (c *Client) FixtureEvents(ctx context.Context, fixtureID int64) ([]odds.MatchEvent, error) {
	params := map[string]string{"fixture": strconv.FormatInt(fixtureID, 10)}
	raw, _, err := c.getJSON(ctx, "fixtures/events", params, ttlEvents)
	if err != nil {
		return nil, err
	}
	var wire []wireEvent
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &UpstreamError{Endpoint: "fixtures/events", Err: err}
	}
	out := make([]odds.MatchEvent, 0, len(wire))
	for _, w := range wire {
		out = append(out, odds.MatchEvent{
			FixtureID: fixtureID,
			Elapsed:   w.Time.Elapsed,
			Type:      w.Type,
			Detail:    w.Detail,
			Team:      w.Team.Name,
			Player:    w.Player.Name,
		})
	}
	return out, nil
}

// FixtureStatistics repassa as estatísticas cruas do jogo. Endpoint volátil:
// resposta vazia cacheada não suprime o refetch.
func (c *Client) FixtureStatistics(ctx context.Context, fixtureID int64) (json.RawMessage, error) {
	params := map[string]string{"fixture": strconv.FormatInt(fixtureID, 10)}
	raw, _, err := c.getJSON(ctx, "fixtures/statistics", params, ttlStatistics)
	return raw, err
}

// FixtureLineups repassa as escalações cruas. Também volátil.
func (c *Client) FixtureLineups(ctx context.Context, fixtureID int64) (json.RawMessage, error) {
	params := map[string]string{"fixture": strconv.FormatInt(fixtureID, 10)}
	raw, _, err := c.getJSON(ctx, "fixtures/lineups", params, ttlStatistics)
	return raw, err
}
