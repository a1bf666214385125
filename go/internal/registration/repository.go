package registration

import (
	"context"
	"fmt"

	"github.com/crickyard/registration/go/internal/models"
	"github.com/crickyard/registration/go/internal/registration/db"
	"github.com/crickyard/registration/go/internal/sqlutil"
)

// Querier defines what the repository needs from the database layer.
type Querier interface {
	CreateTeam(ctx context.Context, arg db.CreateTeamParams) (db.Team, error)
	CreatePlayer(ctx context.Context, arg db.CreatePlayerParams) (db.Player, error)
}

type Repository struct {
	queries Querier
}

func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

type CreateTeamRequest struct {
	ID              string          `json:"id"`
	TeamName        string          `json:"team_name"`
	ChurchName      string          `json:"church_name"`
	Captain         models.Contact  `json:"captain"`
	ViceCaptain     models.Contact  `json:"vice_captain"`
	PastorLetterURL *string         `json:"pastor_letter_url"`
	ReceiptURL      *string         `json:"receipt_url"`
	GroupPhotoURL   *string         `json:"group_photo_url"`
}

type CreatePlayerRequest struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Age             int               `json:"age"`
	Phone           string            `json:"phone"`
	Role            models.PlayerRole `json:"role"`
	JerseyNumber    string            `json:"jersey_number"`
	AadharURL       *string           `json:"aadhar_url"`
	SubscriptionURL *string           `json:"subscription_url"`
}

func (r *Repository) CreateTeam(ctx context.Context, req CreateTeamRequest) (*models.Team, error) {
	team, err := r.queries.CreateTeam(ctx, db.CreateTeamParams{
		ID:              req.ID,
		TeamName:        req.TeamName,
		ChurchName:      req.ChurchName,
		CaptainName:     req.Captain.Name,
		CaptainPhone:    req.Captain.Phone,
		CaptainWhatsapp: req.Captain.WhatsApp,
		CaptainEmail:    req.Captain.Email,
		ViceName:        req.ViceCaptain.Name,
		VicePhone:       req.ViceCaptain.Phone,
		ViceWhatsapp:    req.ViceCaptain.WhatsApp,
		ViceEmail:       req.ViceCaptain.Email,
		PastorLetterUrl: sqlutil.ToSqlString(req.PastorLetterURL),
		ReceiptUrl:      sqlutil.ToSqlString(req.ReceiptURL),
		GroupPhotoUrl:   sqlutil.ToSqlString(req.GroupPhotoURL),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	return r.dbTeamToModel(team), nil
}

func (r *Repository) CreatePlayers(ctx context.Context, teamID string, reqs []CreatePlayerRequest) ([]models.Player, error) {
	result := make([]models.Player, 0, len(reqs))
	for _, req := range reqs {
		player, err := r.queries.CreatePlayer(ctx, db.CreatePlayerParams{
			ID:              req.ID,
			TeamID:          teamID,
			Name:            req.Name,
			Age:             int32(req.Age),
			Phone:           req.Phone,
			Role:            string(req.Role),
			JerseyNumber:    req.JerseyNumber,
			AadharUrl:       sqlutil.ToSqlString(req.AadharURL),
			SubscriptionUrl: sqlutil.ToSqlString(req.SubscriptionURL),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create player %s: %w", req.ID, err)
		}
		result = append(result, *r.dbPlayerToModel(player))
	}
	return result, nil
}

func (r *Repository) dbTeamToModel(dbTeam db.Team) *models.Team {
	return &models.Team{
		ID:         dbTeam.ID,
		TeamName:   dbTeam.TeamName,
		ChurchName: dbTeam.ChurchName,
		Captain: models.Contact{
			Name:     dbTeam.CaptainName,
			Phone:    dbTeam.CaptainPhone,
			WhatsApp: dbTeam.CaptainWhatsapp,
			Email:    dbTeam.CaptainEmail,
		},
		ViceCaptain: models.Contact{
			Name:     dbTeam.ViceName,
			Phone:    dbTeam.VicePhone,
			WhatsApp: dbTeam.ViceWhatsapp,
			Email:    dbTeam.ViceEmail,
		},
		PastorLetterURL: sqlutil.FromSqlStringPtr(dbTeam.PastorLetterUrl),
		ReceiptURL:      sqlutil.FromSqlStringPtr(dbTeam.ReceiptUrl),
		GroupPhotoURL:   sqlutil.FromSqlStringPtr(dbTeam.GroupPhotoUrl),
		CreatedAt:       dbTeam.CreatedAt,
	}
}

func (r *Repository) dbPlayerToModel(dbPlayer db.Player) *models.Player {
	return &models.Player{
		ID:              dbPlayer.ID,
		TeamID:          dbPlayer.TeamID,
		Name:            dbPlayer.Name,
		Age:             int(dbPlayer.Age),
		Phone:           dbPlayer.Phone,
		Role:            models.PlayerRole(dbPlayer.Role),
		JerseyNumber:    dbPlayer.JerseyNumber,
		AadharURL:       sqlutil.FromSqlStringPtr(dbPlayer.AadharUrl),
		SubscriptionURL: sqlutil.FromSqlStringPtr(dbPlayer.SubscriptionUrl),
		CreatedAt:       dbPlayer.CreatedAt,
	}
}
