package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/peladahub/peladahub/internal/cashbox"
	"github.com/peladahub/peladahub/internal/importer"
	"github.com/peladahub/peladahub/internal/league"
	"github.com/peladahub/peladahub/internal/standings"
)

var errInvalidWindow = errors.New("invalid standings window")

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok", "request_id": requestIDFromContext(r)})
	}
}

func (s *Server) ListPlayersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := s.Store.AllPlayers()
		if err != nil {
			http.Error(w, "Failed to get players", http.StatusInternalServerError)
			log.Error("Failed to get players from store", "error", err)
			return
		}
		writeJSON(w, players)
	}
}

func (s *Server) ListRoundsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rounds, err := s.Store.AllRounds()
		if err != nil {
			http.Error(w, "Failed to get rounds", http.StatusInternalServerError)
			log.Error("Failed to get rounds from store", "error", err)
			return
		}
		writeJSON(w, rounds)
	}
}

// RoundDetailHandler returns one round with its teams and fact rows.
func (s *Server) RoundDetailHandler() http.HandlerFunc {
	type response struct {
		Round   *league.Round      `json:"round"`
		Teams   []league.TeamRound `json:"teams"`
		Entries []league.Entry     `json:"entries"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid round id", http.StatusBadRequest)
			return
		}
		round, err := s.Store.GetRound(id)
		if err != nil {
			http.Error(w, "Round not found", http.StatusNotFound)
			return
		}
		teams, err := s.Store.TeamsForRound(id)
		if err != nil {
			http.Error(w, "Failed to get teams", http.StatusInternalServerError)
			return
		}
		entries, err := s.Store.EntriesForRound(id)
		if err != nil {
			http.Error(w, "Failed to get fact rows", http.StatusInternalServerError)
			return
		}
		writeJSON(w, response{Round: round, Teams: teams, Entries: entries})
	}
}

// MarkAttendanceHandler records a presence-only fact row for a player on a
// date, creating the round when needed.
func (s *Server) MarkAttendanceHandler() http.HandlerFunc {
	type request struct {
		PlayerID int64  `json:"player_id"`
		Date     string `json:"date"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		dateISO, ok := importer.ParseDate(req.Date)
		if !ok {
			http.Error(w, "Invalid date", http.StatusBadRequest)
			return
		}
		roundID, _, err := s.Store.ResolveOrCreateRound(dateISO, "", false)
		if err != nil {
			http.Error(w, "Failed to resolve round", http.StatusInternalServerError)
			log.Error("Failed to resolve round", "error", err, "date", dateISO)
			return
		}
		if err := s.Store.MarkAttendance(roundID, req.PlayerID); err != nil {
			http.Error(w, "Failed to mark attendance", http.StatusInternalServerError)
			log.Error("Failed to mark attendance", "error", err, "roundID", roundID, "playerID", req.PlayerID)
			return
		}
		writeJSON(w, map[string]int64{"round_id": roundID})
	}
}

func decodeRows[T any](w http.ResponseWriter, r *http.Request) ([]T, bool) {
	var rows []T
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	return rows, true
}

func runImport[T any](w http.ResponseWriter, r *http.Request, run func([]T) (importer.Report, error)) {
	rows, ok := decodeRows[T](w, r)
	if !ok {
		return
	}
	report, err := run(rows)
	if err != nil {
		http.Error(w, "Import failed", http.StatusInternalServerError)
		log.Error("Import failed", "error", err, "requestID", requestIDFromContext(r))
		return
	}
	writeJSON(w, report)
}

func (s *Server) ImportPlayersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runImport(w, r, s.Importer.ImportPlayers)
	}
}

func (s *Server) ImportTeamResultsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runImport(w, r, s.Importer.ImportTeamResults)
	}
}

func (s *Server) ImportPlayerLinksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runImport(w, r, s.Importer.ImportPlayerLinks)
	}
}

func (s *Server) ImportCardsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runImport(w, r, s.Importer.ImportCards)
	}
}

func (s *Server) ImportGoalkeeperOverridesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runImport(w, r, s.Importer.ImportGoalkeeperOverrides)
	}
}

// RecomputeHandler recalculates one round (?round_id=N) or every round
// (?all=true, with optional close_all and labels flags).
func (s *Server) RecomputeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := r.URL.Query()

		if q.Get("all") == "true" {
			closeAll := q.Get("close_all") == "true"
			labels := q.Get("labels") != "false"
			if err := s.Engine.RecomputeAll(closeAll, labels); err != nil {
				http.Error(w, "Recompute failed", http.StatusInternalServerError)
				log.Error("Recompute all failed", "error", err)
				return
			}
			s.Metrics.IncRecomputeRuns()
			s.Metrics.ObserveRecomputeDuration(time.Since(start).Seconds())
			writeJSON(w, map[string]string{"status": "recomputed"})
			return
		}

		roundID, err := strconv.ParseInt(q.Get("round_id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid round id", http.StatusBadRequest)
			return
		}
		if err := s.Engine.RecomputeRound(roundID); err != nil {
			http.Error(w, "Recompute failed", http.StatusInternalServerError)
			log.Error("Recompute failed", "error", err, "roundID", roundID)
			return
		}
		s.Metrics.IncRecomputeRuns()
		s.Metrics.ObserveRecomputeDuration(time.Since(start).Seconds())
		writeJSON(w, map[string]string{"status": "recomputed"})
	}
}

// StandingsHandler serves a windowed standings table. With cached=true the
// last stored snapshot for the window is served when one exists.
func (s *Server) StandingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		window, err := windowFromQuery(q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if q.Get("cached") == "true" {
			table, found, err := s.Snapshots.Load(window.Label())
			if err != nil {
				log.Error("Failed to load standings snapshot", "error", err, "window", window.Label())
			} else if found {
				writeJSON(w, table)
				return
			}
		}

		table, err := s.Aggregator.Standings(window)
		if err != nil {
			http.Error(w, "Failed to compute standings", http.StatusInternalServerError)
			log.Error("Failed to compute standings", "error", err, "window", window.Label())
			return
		}
		s.Metrics.IncStandingsQueries()

		if err := s.Snapshots.Save(table); err != nil {
			log.Error("Failed to save standings snapshot", "error", err, "window", window.Label())
		}
		writeJSON(w, table)
	}
}

func windowFromQuery(q map[string][]string) (standings.Window, error) {
	get := func(key string) string {
		if v, ok := q[key]; ok && len(v) > 0 {
			return v[0]
		}
		return ""
	}
	switch get("mode") {
	case "", "all":
		return standings.AllTime(), nil
	case "range":
		start, startOK := importer.ParseDate(get("start"))
		end, endOK := importer.ParseDate(get("end"))
		if !startOK || !endOK {
			return standings.Window{}, errInvalidWindow
		}
		return standings.DateRange(start, end), nil
	case "season":
		return standings.Season(get("season")), nil
	case "upto":
		roundID, err := strconv.ParseInt(get("round_id"), 10, 64)
		if err != nil {
			return standings.Window{}, errInvalidWindow
		}
		return standings.UpToRound(roundID), nil
	default:
		return standings.Window{}, errInvalidWindow
	}
}

func (s *Server) DeleteRoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid round id", http.StatusBadRequest)
			return
		}
		if err := s.Store.DeleteRound(id); err != nil {
			http.Error(w, "Failed to delete round", http.StatusInternalServerError)
			log.Error("Failed to delete round", "error", err, "roundID", id)
			return
		}
		if err := s.Engine.RegenerateLabels(); err != nil {
			log.Error("Failed to regenerate round labels", "error", err)
		}
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}

// DeleteRoundEntriesHandler bulk-deletes a round's fact rows and recomputes
// the round.
func (s *Server) DeleteRoundEntriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid round id", http.StatusBadRequest)
			return
		}
		if err := s.Store.DeleteEntriesForRound(id); err != nil {
			http.Error(w, "Failed to delete fact rows", http.StatusInternalServerError)
			log.Error("Failed to delete fact rows", "error", err, "roundID", id)
			return
		}
		if err := s.Engine.RecomputeRound(id); err != nil {
			log.Error("Recompute after delete failed", "error", err, "roundID", id)
		}
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}

func (s *Server) DeleteTeamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		roundID, err := strconv.ParseInt(q.Get("round_id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid round id", http.StatusBadRequest)
			return
		}
		teamID, err := strconv.ParseInt(q.Get("team_id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid team id", http.StatusBadRequest)
			return
		}
		if err := s.Store.DeleteTeam(roundID, teamID); err != nil {
			http.Error(w, "Failed to delete team", http.StatusInternalServerError)
			log.Error("Failed to delete team", "error", err, "roundID", roundID, "teamID", teamID)
			return
		}
		if err := s.Engine.RecomputeRound(roundID); err != nil {
			log.Error("Recompute after team delete failed", "error", err, "roundID", roundID)
		}
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}

func (s *Server) CashboxSummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		month, err := strconv.Atoi(q.Get("month"))
		if err != nil {
			http.Error(w, "Invalid month", http.StatusBadRequest)
			return
		}
		summary, err := s.Cashbox.MonthSummary(q.Get("season"), month)
		if err != nil {
			http.Error(w, "Failed to compute month summary", http.StatusInternalServerError)
			log.Error("Failed to compute month summary", "error", err)
			return
		}
		writeJSON(w, summary)
	}
}

func (s *Server) CashboxBalanceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		upTo, err := strconv.Atoi(q.Get("up_to_month"))
		if err != nil {
			http.Error(w, "Invalid month", http.StatusBadRequest)
			return
		}
		balance, err := s.Cashbox.SeasonRunningBalance(q.Get("season"), upTo)
		if err != nil {
			http.Error(w, "Failed to compute running balance", http.StatusInternalServerError)
			log.Error("Failed to compute running balance", "error", err)
			return
		}
		writeJSON(w, map[string]float64{"balance": balance})
	}
}

func (s *Server) CashboxOpeningHandler() http.HandlerFunc {
	type request struct {
		Season  string  `json:"season"`
		Opening float64 `json:"opening"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := s.Cashbox.SetOpening(req.Season, req.Opening); err != nil {
			http.Error(w, "Failed to set opening balance", http.StatusInternalServerError)
			log.Error("Failed to set opening balance", "error", err)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	}
}

func (s *Server) CashboxPaidHandler() http.HandlerFunc {
	type request struct {
		Season   string `json:"season"`
		PlayerID int64  `json:"player_id"`
		Month    int    `json:"month"`
		Paid     bool   `json:"paid"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := s.Cashbox.SetMonthlyPaid(req.Season, req.PlayerID, req.Month, req.Paid); err != nil {
			http.Error(w, "Failed to set paid flag", http.StatusInternalServerError)
			log.Error("Failed to set paid flag", "error", err)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	}
}

func (s *Server) CashboxExtraHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var extra cashbox.Extra
		if err := json.NewDecoder(r.Body).Decode(&extra); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		id, err := s.Cashbox.AddExtra(extra)
		if err != nil {
			http.Error(w, "Failed to add cash entry", http.StatusInternalServerError)
			log.Error("Failed to add cash entry", "error", err)
			return
		}
		writeJSON(w, map[string]int64{"id": id})
	}
}
