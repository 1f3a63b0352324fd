package config

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL            string
	MaxOpenConns   int
	MaxIdleConns   int
	MigrateOnStart bool
}

// GetConnectionString returns the PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return c.URL
}

// PoolSize returns the open/idle connection limits with sane floors.
func (c *DatabaseConfig) PoolSize() (maxOpen, maxIdle int) {
	maxOpen, maxIdle = c.MaxOpenConns, c.MaxIdleConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = maxOpen / 5
	}
	return maxOpen, maxIdle
}
