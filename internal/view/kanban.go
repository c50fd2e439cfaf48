package view

import "github.com/rpggio/plantrack/internal/domain/project"

// Column is one kanban bucket with its activities in list order.
type Column struct {
	Bucket     project.Bucket     `json:"bucket"`
	Activities []project.Activity `json:"activities"`
}

// Kanban partitions activities into the four fixed buckets by status. Each
// column keeps the relative order of the source list.
func Kanban(activities []project.Activity) []Column {
	cols := make([]Column, len(project.Buckets))
	pos := make(map[project.Bucket]int, len(project.Buckets))
	for i, b := range project.Buckets {
		cols[i] = Column{Bucket: b, Activities: []project.Activity{}}
		pos[b] = i
	}
	for _, a := range activities {
		i := pos[project.BucketFor(a.Status)]
		cols[i].Activities = append(cols[i].Activities, a)
	}
	return cols
}
