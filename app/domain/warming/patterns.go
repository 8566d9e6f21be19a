package warming

import (
	"vantage.ai/dashboard-cache-engine/app/domain/cache"
	"vantage.ai/dashboard-cache-engine/app/domain/events"
)

// Pattern declares one prefetch a trigger should issue: which data type to
// warm and under which namespace the entry lands.
type Pattern struct {
	Namespace string
	DataType  string
	Priority  cache.Priority
}

// defaultTriggerPatterns are the static per-trigger declarations. The engine
// may synthesize additional high-priority patterns from usage history.
func defaultTriggerPatterns() map[string][]Pattern {
	return map[string][]Pattern{
		events.EventIDESwitch: {
			{Namespace: "tasks", DataType: "tasks", Priority: cache.PriorityHigh},
			{Namespace: "git", DataType: "git", Priority: cache.PriorityMedium},
			{Namespace: "ide", DataType: "ide", Priority: cache.PriorityHigh},
		},
		events.EventProjectChange: {
			{Namespace: "project", DataType: "project", Priority: cache.PriorityHigh},
			{Namespace: "tasks", DataType: "tasks", Priority: cache.PriorityHigh},
			{Namespace: "analysis", DataType: "analysis", Priority: cache.PriorityLow},
		},
		events.EventAnalysisComplete: {
			{Namespace: "analysis", DataType: "analysis", Priority: cache.PriorityMedium},
		},
		events.EventChatNew: {
			{Namespace: "chat", DataType: "chat", Priority: cache.PriorityMedium},
		},
	}
}

// RegisterPatterns declares (or replaces) the static patterns for a trigger.
func (s *WarmingService) RegisterPatterns(trigger string, patterns []Pattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[trigger] = append([]Pattern(nil), patterns...)
}
