// Package weaviate adapts the Weaviate client to the vector store
// operations the pipeline and retrieval layers consume.
package weaviate

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"studyrag/backend/internal/vector"
)

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// EnsureCollection creates the course's class if needed.
func (s *Store) EnsureCollection(ctx context.Context, courseID string) error {
	return vector.EnsureCollection(ctx, vector.NewWeaviateClientAdapter(s.client), courseID)
}

// DeleteCollection drops the course's class and all chunks in it.
func (s *Store) DeleteCollection(ctx context.Context, courseID string) error {
	return vector.DropCollection(ctx, vector.NewWeaviateClientAdapter(s.client), courseID)
}

// Add imports chunks into the course's class in one batch. Object ids are
// derived from chunk keys, so re-adding a chunk overwrites it in place.
func (s *Store) Add(ctx context.Context, courseID string, chunks []vector.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	className := vector.CollectionClass(courseID)
	objects := make([]*models.Object, 0, len(chunks))
	for _, chunk := range chunks {
		props := map[string]interface{}{
			"content":    chunk.Content,
			"chunkKey":   chunk.Key,
			"docId":      chunk.DocID,
			"chunkIndex": chunk.Index,
		}
		if src, ok := chunk.Metadata["source"].(string); ok {
			props["source"] = src
		}
		if page, ok := pageNumber(chunk.Metadata["page"]); ok {
			props["page"] = page
		}
		objects = append(objects, &models.Object{
			Class:      className,
			ID:         strfmt.UUID(vector.ObjectID(chunk.Key)),
			Properties: props,
			Vector:     chunk.Vector,
		})
	}

	res, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("batch import into %s: %w", className, err)
	}
	for _, obj := range res {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch import into %s: %s", className, obj.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// ExistingKeys reports which of the given chunk keys are already stored
// for the course. A missing class means nothing is stored yet.
func (s *Store) ExistingKeys(ctx context.Context, courseID string, keys []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(keys) == 0 {
		return existing, nil
	}

	className := vector.CollectionClass(courseID)
	classExists, err := s.client.Schema().ClassExistenceChecker().WithClassName(className).Do(ctx)
	if err != nil {
		return nil, err
	}
	if !classExists {
		return existing, nil
	}

	where := filters.Where().
		WithPath([]string{"chunkKey"}).
		WithOperator(filters.ContainsAny).
		WithValueString(keys...)

	res, err := s.client.GraphQL().Get().
		WithClassName(className).
		WithWhere(where).
		WithLimit(len(keys)).
		WithFields(graphql.Field{Name: "chunkKey"}).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	for _, props := range classObjects(res, className) {
		if key, ok := props["chunkKey"].(string); ok {
			existing[key] = true
		}
	}
	return existing, nil
}

// Query returns the topK chunks of the course nearest to the vector.
func (s *Store) Query(ctx context.Context, courseID string, queryVector []float32, topK int) ([]vector.SearchResult, error) {
	className := vector.CollectionClass(courseID)

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(queryVector)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "chunkKey"},
		{Name: "docId"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(className).
		WithNearVector(nearVector).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	var results []vector.SearchResult
	for _, props := range classObjects(res, className) {
		result := vector.SearchResult{}
		if content, ok := props["content"].(string); ok {
			result.Content = content
		}
		if key, ok := props["chunkKey"].(string); ok {
			result.Key = key
		}
		if docID, ok := props["docId"].(string); ok {
			result.DocID = docID
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if distance, ok := additional["distance"].(float64); ok {
				result.Distance = float32(distance)
			}
		}
		results = append(results, result)
	}
	return results, nil
}

func classObjects(res *models.GraphQLResponse, className string) []map[string]interface{} {
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	items, ok := data[className].([]interface{})
	if !ok {
		return nil
	}
	objects := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if props, ok := item.(map[string]interface{}); ok {
			objects = append(objects, props)
		}
	}
	return objects
}

func pageNumber(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
