package services

import (
	"fmt"

	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
	savestore "github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/persistence/saves"
)

// SaveService stores and retrieves opaque per-user save blobs. The blob is
// uninterpreted at this layer.
type SaveService struct {
	repo   *savestore.SaveRepository
	logger *logging.ChanneledLogger
}

// NewSaveService creates the save blob service.
func NewSaveService(repo *savestore.SaveRepository, logger *logging.ChanneledLogger) *SaveService {
	return &SaveService{repo: repo, logger: logger}
}

// StoreSave upserts the save blob for a user.
func (s *SaveService) StoreSave(username, data string) error {
	if username == "" {
		return validationErrorf("missing username")
	}
	if err := s.repo.Store(username, data); err != nil {
		return fmt.Errorf("failed to store save for %q: %w", username, err)
	}
	s.logger.System().Debug("Save stored", "username", username, "bytes", len(data))
	return nil
}

// LoadSave returns the stored blob for a user; found is false when the user
// has never saved.
func (s *SaveService) LoadSave(username string) (string, bool, error) {
	if username == "" {
		return "", false, validationErrorf("missing username")
	}
	data, found, err := s.repo.Load(username)
	if err != nil {
		return "", false, fmt.Errorf("failed to load save for %q: %w", username, err)
	}
	return data, found, nil
}
