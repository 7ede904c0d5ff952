package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecs-league/draftboard/internal/board"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&League{}, &Team{}, &Player{}, &PlayerTeam{}, &DraftPick{}); err != nil {
		return nil, err
	}
	return db, nil
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) League(ctx context.Context, name string) (League, error) {
	var league League
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&league).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return League{}, fmt.Errorf("%w: league %q", ErrNotFound, name)
	}
	return league, err
}

// LoadBoard builds a league's full board state: teams, player pool and
// current assignments.
func (s *Store) LoadBoard(ctx context.Context, leagueName string) (board.State, error) {
	league, err := s.League(ctx, leagueName)
	if err != nil {
		return board.State{}, err
	}

	state := board.NewState(board.Rules{AllowMultiTeam: league.AllowMultiTeam})

	var teams []Team
	if err := s.db.WithContext(ctx).Where("league_id = ?", league.ID).Find(&teams).Error; err != nil {
		return board.State{}, err
	}
	teamIDs := make([]int, 0, len(teams))
	for _, t := range teams {
		state.Teams[t.ID] = board.Team{ID: t.ID, Name: t.Name}
		teamIDs = append(teamIDs, t.ID)
	}

	var players []Player
	if err := s.db.WithContext(ctx).Where("league_id = ?", league.ID).Find(&players).Error; err != nil {
		return board.State{}, err
	}
	for _, p := range players {
		state.Players[p.ID] = toBoardPlayer(p)
	}

	if len(teamIDs) > 0 {
		var rows []PlayerTeam
		if err := s.db.WithContext(ctx).Where("team_id IN ?", teamIDs).Find(&rows).Error; err != nil {
			return board.State{}, err
		}
		for _, row := range rows {
			pos, ok := board.ParsePosition(row.Position)
			if !ok {
				pos = board.PosBench
			}
			state.Assignments[row.PlayerID] = append(state.Assignments[row.PlayerID],
				board.Assignment{TeamID: row.TeamID, Position: pos})
		}
	}

	return state, nil
}

// PersistEvent writes one accepted board event. Runs in a transaction
// so the assignment row and the pick history never diverge.
func (s *Store) PersistEvent(ctx context.Context, leagueName string, ev board.Event) error {
	league, err := s.League(ctx, leagueName)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch ev.Type {
		case board.EvtPlayerDrafted:
			if !league.AllowMultiTeam {
				// Moving teams drops the old assignment.
				sub := tx.Model(&Team{}).Select("id").Where("league_id = ?", league.ID)
				if err := tx.Where("player_id = ? AND team_id IN (?) AND team_id <> ?",
					ev.PlayerID, sub, ev.TeamID).Delete(&PlayerTeam{}).Error; err != nil {
					return err
				}
			}
			row := PlayerTeam{PlayerID: ev.PlayerID, TeamID: ev.TeamID, Position: string(ev.Position)}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "player_id"}, {Name: "team_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"position"}),
			}).Create(&row).Error; err != nil {
				return err
			}
			return recordPick(tx, league.ID, ev.TeamID, ev.PlayerID)

		case board.EvtPlayerRemoved:
			if err := tx.Where("player_id = ? AND team_id = ?", ev.PlayerID, ev.TeamID).
				Delete(&PlayerTeam{}).Error; err != nil {
				return err
			}
			return removePick(tx, league.ID, ev.PlayerID)

		case board.EvtPositionUpdated:
			return tx.Model(&PlayerTeam{}).
				Where("player_id = ? AND team_id = ?", ev.PlayerID, ev.TeamID).
				Update("position", string(ev.Position)).Error

		default:
			return nil
		}
	})
}

func recordPick(tx *gorm.DB, leagueID, teamID, playerID int) error {
	// Re-drafting the same player (position change via draft) keeps the
	// original pick number.
	var existing int64
	if err := tx.Model(&DraftPick{}).
		Where("league_id = ? AND player_id = ?", leagueID, playerID).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	var max int
	row := tx.Model(&DraftPick{}).Where("league_id = ?", leagueID).
		Select("COALESCE(MAX(pick_number), 0)").Row()
	if err := row.Scan(&max); err != nil {
		return err
	}
	return tx.Create(&DraftPick{
		LeagueID:   leagueID,
		TeamID:     teamID,
		PlayerID:   playerID,
		PickNumber: max + 1,
	}).Error
}

// removePick deletes the player's pick and closes the gap in the pick
// numbering, matching how the draft history reads after an undo.
func removePick(tx *gorm.DB, leagueID, playerID int) error {
	var pick DraftPick
	err := tx.Where("league_id = ? AND player_id = ?", leagueID, playerID).First(&pick).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := tx.Delete(&pick).Error; err != nil {
		return err
	}
	return tx.Model(&DraftPick{}).
		Where("league_id = ? AND pick_number > ?", leagueID, pick.PickNumber).
		Update("pick_number", gorm.Expr("pick_number - 1")).Error
}

func (s *Store) GetPlayer(ctx context.Context, id int) (board.Player, error) {
	var p Player
	err := s.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return board.Player{}, fmt.Errorf("%w: player %d", ErrNotFound, id)
	}
	if err != nil {
		return board.Player{}, err
	}
	return toBoardPlayer(p), nil
}

// SearchPlayers matches on name, optionally restricted to a league's
// pool.
func (s *Store) SearchPlayers(ctx context.Context, query, leagueName string) ([]board.Player, error) {
	q := s.db.WithContext(ctx).Model(&Player{})
	if query != "" {
		q = q.Where("name ILIKE ?", "%"+query+"%")
	}
	if leagueName != "" {
		league, err := s.League(ctx, leagueName)
		if err != nil {
			return nil, err
		}
		q = q.Where("league_id = ?", league.ID)
	}

	var players []Player
	if err := q.Order("name").Limit(50).Find(&players).Error; err != nil {
		return nil, err
	}
	out := make([]board.Player, len(players))
	for i, p := range players {
		out[i] = toBoardPlayer(p)
	}
	return out, nil
}

func (s *Store) ListPicks(ctx context.Context, leagueName string) ([]DraftPick, error) {
	league, err := s.League(ctx, leagueName)
	if err != nil {
		return nil, err
	}
	var picks []DraftPick
	err = s.db.WithContext(ctx).Where("league_id = ?", league.ID).
		Order("pick_number").Find(&picks).Error
	return picks, err
}

func toBoardPlayer(p Player) board.Player {
	return board.Player{
		ID:                p.ID,
		Name:              p.Name,
		ProfilePictureURL: p.ProfilePictureURL,
		FavoritePosition:  p.FavoritePosition,
		OtherPositions:    p.OtherPositions,
		CareerGoals:       p.CareerGoals,
		CareerAssists:     p.CareerAssists,
		CareerYellowCards: p.CareerYellowCards,
		CareerRedCards:    p.CareerRedCards,
	}
}
