package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"cs-instructor-backend/internal/ai"
	"cs-instructor-backend/internal/logger"
	"cs-instructor-backend/models"
	"cs-instructor-backend/utils"

	chromem "github.com/philippgille/chromem-go"
)

const (
	collectionName = "cs-knowledge"

	// placeholderID seeds a fresh collection so similarity queries against an
	// empty index behave. It is invisible to every read path.
	placeholderID      = "placeholder"
	placeholderContent = "Initialize"

	noContextMessage = "No relevant context found in semantic memory."

	previewLength = 100
)

// chunkRecord is the on-disk shape of one chunk in the metadata side map.
// Content above the compression threshold is stored compressed.
type chunkRecord struct {
	ChunkID     string                     `json:"chunk_id"`
	Metadata    map[string]string          `json:"metadata"`
	AddedAt     time.Time                  `json:"added_at"`
	Content     []byte                     `json:"content"`
	Compression utils.CompressionAlgorithm `json:"compression"`
}

// metadataFile is the JSON artifact persisted next to the vector index. The
// two are always written together so the pair stays coherent.
type metadataFile struct {
	Chunks     map[string]chunkRecord `json:"chunks"`
	DeletedIDs []string               `json:"deleted_ids"`
}

// SemanticMemory is the document knowledge base: a chromem-go vector
// collection for similarity search plus a metadata side map for listing,
// metadata filtering and stats. One instance is shared by all sessions.
//
// Deleting a chunk removes its metadata entry immediately and marks the
// vector entry for removal; Compact reconciles the collection. A crash
// between the two writes leaves an orphaned vector that the next Compact
// cleans up.
type SemanticMemory struct {
	mu         sync.Mutex
	db         *chromem.DB
	collection *chromem.Collection
	embedder   ai.Embedder
	chunker    *Chunker
	indexDir   string

	chunks  map[string]chunkRecord
	deleted map[string]struct{}

	scoreThreshold float32
}

// SemanticOptions carries the tunables for index construction.
type SemanticOptions struct {
	IndexDir       string
	MaxChunkSize   int
	ChunkOverlap   int
	MinChunkSize   int
	ScoreThreshold float64
}

func NewSemanticMemory(ctx context.Context, embedder ai.Embedder, opts SemanticOptions) (*SemanticMemory, error) {
	if err := os.MkdirAll(opts.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	db, err := chromem.NewPersistentDB(filepath.Join(opts.IndexDir, "chromem"), true)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	s := &SemanticMemory{
		db:             db,
		embedder:       embedder,
		chunker:        NewChunker(opts.MaxChunkSize, opts.ChunkOverlap, opts.MinChunkSize),
		indexDir:       opts.IndexDir,
		chunks:         make(map[string]chunkRecord),
		deleted:        make(map[string]struct{}),
		scoreThreshold: float32(opts.ScoreThreshold),
	}

	s.collection, err = db.GetOrCreateCollection(collectionName, nil, s.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}

	if err := s.loadMetadata(); err != nil {
		logger.Warn("could not load index metadata, starting empty", "error", err.Error())
	}

	if err := s.seedPlaceholder(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *SemanticMemory) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	}
}

func (s *SemanticMemory) seedPlaceholder(ctx context.Context) error {
	if s.collection.Count() > 0 {
		return nil
	}
	err := s.collection.AddDocument(ctx, chromem.Document{
		ID:       placeholderID,
		Metadata: map[string]string{"source": "system"},
		Content:  placeholderContent,
	})
	if err != nil {
		return fmt.Errorf("seed collection: %w", err)
	}
	return nil
}

// Ingest chunks, embeds and stores the documents, returning the chunk ids in
// insertion order. A chunk whose id is already present is skipped; its id is
// still returned so callers see the full mapping.
func (s *SemanticMemory) Ingest(ctx context.Context, docs []models.Document, sourceInfo map[string]string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source := sourceInfo["source"]
	if source == "" {
		source = "unknown"
	}

	var ids []string
	for _, doc := range docs {
		for _, text := range s.chunker.Split(doc.Content) {
			id := utils.ChunkID(text)
			ids = append(ids, id)

			if _, exists := s.chunks[id]; exists {
				continue
			}
			delete(s.deleted, id)

			meta := map[string]string{
				"source":       source,
				"added_at":     time.Now().UTC().Format(time.RFC3339),
				"chunk_size":   strconv.Itoa(len(text)),
				"content_hash": utils.ContentHash(text),
			}
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			for k, v := range sourceInfo {
				meta[k] = v
			}

			err := s.collection.AddDocument(ctx, chromem.Document{
				ID:       id,
				Metadata: meta,
				Content:  text,
			})
			if err != nil {
				return ids, fmt.Errorf("index chunk %s: %w", id, err)
			}

			compressed, algorithm, err := utils.CompressText(text)
			if err != nil {
				return ids, fmt.Errorf("compress chunk %s: %w", id, err)
			}
			s.chunks[id] = chunkRecord{
				ChunkID:     id,
				Metadata:    meta,
				AddedAt:     time.Now(),
				Content:     compressed,
				Compression: algorithm,
			}
		}
	}

	if err := s.saveMetadata(); err != nil {
		return ids, err
	}
	return ids, nil
}

// Search returns up to k chunks ranked by similarity, dropping results below
// threshold. The placeholder never appears in results.
func (s *SemanticMemory) Search(ctx context.Context, query string, k int, threshold float32) ([]models.ScoredChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k <= 0 {
		k = 3
	}

	// Query size is capped by the collection; ask for one extra so the
	// placeholder can be filtered without shrinking the result set.
	n := k + 1
	if count := s.collection.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	results, err := s.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	scored := make([]models.ScoredChunk, 0, len(results))
	for _, result := range results {
		if result.ID == placeholderID || result.Similarity < threshold {
			continue
		}
		if len(scored) == k {
			break
		}
		scored = append(scored, models.ScoredChunk{
			Chunk: s.chunkFromResult(result),
			Score: result.Similarity,
		})
	}
	return scored, nil
}

func (s *SemanticMemory) chunkFromResult(result chromem.Result) models.DocumentChunk {
	if record, ok := s.chunks[result.ID]; ok {
		if chunk, err := record.toChunk(); err == nil {
			return chunk
		}
	}
	// Orphaned or unreadable record: fall back to the indexed copy.
	return models.DocumentChunk{
		ChunkID:  result.ID,
		Text:     result.Content,
		Metadata: result.Metadata,
	}
}

func (r chunkRecord) toChunk() (models.DocumentChunk, error) {
	text, err := utils.DecompressText(r.Content, r.Compression)
	if err != nil {
		return models.DocumentChunk{}, err
	}
	return models.DocumentChunk{
		ChunkID:  r.ChunkID,
		Text:     text,
		Metadata: r.Metadata,
		AddedAt:  r.AddedAt,
	}, nil
}

// SearchByMetadata returns chunks whose metadata contains every filter pair.
func (s *SemanticMemory) SearchByMetadata(filter map[string]string, limit int) ([]models.DocumentChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}

	var matches []models.DocumentChunk
	for _, record := range s.sortedRecords() {
		if !metadataMatches(record.Metadata, filter) {
			continue
		}
		chunk, err := record.toChunk()
		if err != nil {
			return nil, fmt.Errorf("decode chunk %s: %w", record.ChunkID, err)
		}
		matches = append(matches, chunk)
		if len(matches) == limit {
			break
		}
	}
	return matches, nil
}

func metadataMatches(meta, filter map[string]string) bool {
	for k, v := range filter {
		if meta[k] != v {
			return false
		}
	}
	return true
}

// ContextFor renders the top chunks for a query as numbered blocks citing
// their source, or a fixed message when nothing relevant is stored.
func (s *SemanticMemory) ContextFor(ctx context.Context, query string, maxChunks int) (string, error) {
	scored, err := s.Search(ctx, query, maxChunks, s.scoreThreshold)
	if err != nil {
		return "", err
	}
	if len(scored) == 0 {
		return noContextMessage, nil
	}

	blocks := make([]string, 0, len(scored))
	for i, sc := range scored {
		source := sc.Chunk.Metadata["source"]
		if source == "" {
			source = "unknown"
		}
		blocks = append(blocks, fmt.Sprintf("**Context %d** (from %s):\n%s", i+1, source, sc.Chunk.Text))
	}
	return strings.Join(blocks, "\n\n"), nil
}

// Delete removes a chunk and reports whether it existed. The metadata entry
// goes immediately; the vector entry is removed best-effort and otherwise
// reconciled by Compact.
func (s *SemanticMemory) Delete(ctx context.Context, chunkID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chunks[chunkID]; !ok {
		return false, nil
	}
	delete(s.chunks, chunkID)
	s.deleted[chunkID] = struct{}{}

	if err := s.collection.Delete(ctx, nil, nil, chunkID); err != nil {
		logger.Warn("vector delete deferred to compaction", "chunk_id", chunkID, "error", err.Error())
	} else {
		delete(s.deleted, chunkID)
	}

	return true, s.saveMetadata()
}

// Compact removes vector entries for chunks deleted since the last run.
func (s *SemanticMemory) Compact(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.deleted) == 0 {
		return nil
	}

	ids := make([]string, 0, len(s.deleted))
	for id := range s.deleted {
		ids = append(ids, id)
	}
	if err := s.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("compact index: %w", err)
	}

	logger.Info("index compacted", "removed", len(ids))
	s.deleted = make(map[string]struct{})
	return s.saveMetadata()
}

// Clear drops every stored chunk and reseeds the placeholder.
func (s *SemanticMemory) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}

	collection, err := s.db.GetOrCreateCollection(collectionName, nil, s.embeddingFunc())
	if err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	s.collection = collection
	s.chunks = make(map[string]chunkRecord)
	s.deleted = make(map[string]struct{})

	if err := s.seedPlaceholder(ctx); err != nil {
		return err
	}
	return s.saveMetadata()
}

// Stats reports index sizes, excluding the placeholder. TotalChunks counts
// vector entries and can exceed TotalDocuments while deletions await
// compaction.
func (s *SemanticMemory) Stats() models.MemoryStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks := s.collection.Count() - 1
	if chunks < 0 {
		chunks = 0
	}
	return models.MemoryStats{
		TotalDocuments: len(s.chunks),
		TotalChunks:    chunks,
	}
}

// ListDocuments returns every stored chunk with a short content preview,
// newest first.
func (s *SemanticMemory) ListDocuments() ([]models.DocumentInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]models.DocumentInfo, 0, len(s.chunks))
	for _, record := range s.sortedRecords() {
		chunk, err := record.toChunk()
		if err != nil {
			return nil, fmt.Errorf("decode chunk %s: %w", record.ChunkID, err)
		}
		preview := chunk.Text
		if len(preview) > previewLength {
			preview = preview[:previewLength] + "..."
		}
		infos = append(infos, models.DocumentInfo{
			ChunkID:        chunk.ChunkID,
			Metadata:       chunk.Metadata,
			ContentPreview: preview,
			AddedAt:        chunk.AddedAt,
		})
	}
	return infos, nil
}

// sortedRecords returns metadata records newest first, id as tiebreak, so
// listings are stable across calls.
func (s *SemanticMemory) sortedRecords() []chunkRecord {
	records := make([]chunkRecord, 0, len(s.chunks))
	for _, record := range s.chunks {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].AddedAt.Equal(records[j].AddedAt) {
			return records[i].AddedAt.After(records[j].AddedAt)
		}
		return records[i].ChunkID < records[j].ChunkID
	})
	return records
}

func (s *SemanticMemory) metadataPath() string {
	return filepath.Join(s.indexDir, "metadata.json")
}

func (s *SemanticMemory) loadMetadata() error {
	data, err := os.ReadFile(s.metadataPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var file metadataFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("decode index metadata: %w", err)
	}
	if file.Chunks != nil {
		s.chunks = file.Chunks
	}
	for _, id := range file.DeletedIDs {
		s.deleted[id] = struct{}{}
	}
	return nil
}

// saveMetadata persists the side map. Callers hold the mutex.
func (s *SemanticMemory) saveMetadata() error {
	file := metadataFile{Chunks: s.chunks}
	for id := range s.deleted {
		file.DeletedIDs = append(file.DeletedIDs, id)
	}
	sort.Strings(file.DeletedIDs)

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index metadata: %w", err)
	}
	return os.WriteFile(s.metadataPath(), data, 0o644)
}
