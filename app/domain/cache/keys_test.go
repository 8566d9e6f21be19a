package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildKey(t *testing.T) {
	assert.Equal(t, "tasks:9222:p1:data", BuildKey("tasks", "9222", "p1", "data"))
	assert.Equal(t, "git:9222::status", BuildKey("git", "9222", "", "status"))
}

func TestRefreshKey(t *testing.T) {
	assert.Equal(t, "refresh:task-list", RefreshKey("task-list"))
}
