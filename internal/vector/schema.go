// Package vector defines the course-scoped vector store schema and the
// chunk identity scheme shared by the ingestion pipeline and retrieval.
package vector

import (
	"context"
	"strings"

	"github.com/weaviate/weaviate/entities/models"
)

// SchemaClient defines the schema operations the collection manager needs.
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
	DeleteClass(ctx context.Context, className string) error
}

// CollectionClass maps a course id to its dedicated class name. Weaviate
// class names must start with an uppercase letter and stay alphanumeric,
// so everything else in the id is stripped.
func CollectionClass(courseID string) string {
	var b strings.Builder
	b.WriteString("Course")
	for _, r := range courseID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func chunkProperties() []*models.Property {
	return []*models.Property{
		{
			Name:     "content",
			DataType: []string{"text"},
		},
		{
			Name:     "chunkKey",
			DataType: []string{"string"}, // "{docID}_chunk_{i}" (exact match)
		},
		{
			Name:     "docId",
			DataType: []string{"string"},
		},
		{
			Name:     "chunkIndex",
			DataType: []string{"int"},
		},
		{
			Name:     "source",
			DataType: []string{"string"},
		},
		{
			Name:     "page",
			DataType: []string{"int"},
		},
	}
}

// EnsureCollection creates the per-course class if it does not exist yet,
// and backfills any properties missing from an existing class.
func EnsureCollection(ctx context.Context, client SchemaClient, courseID string) error {
	className := CollectionClass(courseID)
	exists, err := client.ClassExists(ctx, className)
	if err != nil {
		return err
	}

	properties := chunkProperties()

	if !exists {
		class := &models.Class{
			Class:       className,
			Description: "Embedded material chunks for one course",
			Vectorizer:  "none",
			Properties:  properties,
		}
		return client.CreateClass(ctx, class)
	}

	class, err := client.GetClass(ctx, className)
	if err != nil {
		return err
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, className, p); err != nil {
				return err
			}
		}
	}

	return nil
}

// DropCollection removes a course's class and every chunk in it. Dropping
// a course that was never embedded is not an error.
func DropCollection(ctx context.Context, client SchemaClient, courseID string) error {
	className := CollectionClass(courseID)
	exists, err := client.ClassExists(ctx, className)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return client.DeleteClass(ctx, className)
}
