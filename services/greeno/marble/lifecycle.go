package marble

import "context"

// =============================================================================
// Lifecycle
// =============================================================================

// Start starts the service and its background workers.
func (s *Service) Start(ctx context.Context) error {
	return s.BaseService.Start(ctx)
}

// Stop stops the background workers.
func (s *Service) Stop() error {
	return s.BaseService.Stop()
}
