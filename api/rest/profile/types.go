package profile

import "codeberg.org/luchgpt/server/internal/models"

type ModelsResponse struct {
	Models []models.Model `json:"models"`
}
