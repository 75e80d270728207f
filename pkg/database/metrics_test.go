package database

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestPoolCollector_Describe(t *testing.T) {
	c := newPoolCollector(func() *pgxpool.Stat { return nil }, "inventory")

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	var descs []string
	for d := range ch {
		descs = append(descs, d.String())
	}

	assert.Len(t, descs, 8)
	for _, d := range descs {
		assert.Contains(t, d, `fqName: "db_pool_`)
		assert.Contains(t, d, `service="inventory"`)
	}
}

func TestPoolCollector_DistinctNames(t *testing.T) {
	c := newPoolCollector(func() *pgxpool.Stat { return nil }, "inventory")

	seen := make(map[string]bool)
	for _, m := range c.metrics {
		name := m.desc.String()
		assert.False(t, seen[name], "duplicate metric %s", name)
		seen[name] = true
	}
}
