package types

import (
	"github.com/familytales/memorybook-api/internal/database"
	"github.com/familytales/memorybook-api/internal/services/jobs"
	"github.com/familytales/memorybook-api/internal/services/threads"
	"github.com/familytales/memorybook-api/internal/services/workers"
)

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB            *database.DB
	ThreadService threads.Service
	JobService    jobs.Service
	WorkerPool    *workers.WorkerPool
}
