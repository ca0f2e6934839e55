package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"leftovr/internal/core/embedding"
	"leftovr/internal/core/index"
	"leftovr/internal/core/store"
	"leftovr/internal/core/vector"
	"leftovr/internal/infrastructure/config"
	"leftovr/internal/pkg/common"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// 資料集建置工具。讀取 RecipeNLG 格式的 CSV，輸出
// recipe_metadata.jsonl 與 ingredient_index.json，並可選擇性地
// 嵌入食譜文字寫入向量庫。
func main() {
	var (
		input        = pflag.String("input", "", "path to the recipe CSV dataset")
		outdir       = pflag.String("outdir", "data", "output directory for metadata and index files")
		sample       = pflag.Int("sample", 0, "only ingest the first N rows (0 = all)")
		buildVectors = pflag.Bool("build-vectors", false, "embed recipe texts and upsert them into the vector store")
		batchSize    = pflag.Int("batch-size", 64, "embedding batch size")
		embedWorkers = pflag.Int("embed-workers", 4, "concurrent embedding workers")
	)
	pflag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest --input recipes.csv [--outdir data] [--build-vectors]")
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	start := time.Now()

	recipes, err := readCSV(*input, *sample)
	if err != nil {
		common.LogFatal("Failed to read dataset", zap.Error(err))
	}
	common.LogInfo("資料集已讀取",
		zap.Int("recipes", len(recipes)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := os.MkdirAll(*outdir, 0o755); err != nil {
		common.LogFatal("Failed to create output directory", zap.Error(err))
	}

	metaPath := filepath.Join(*outdir, cfg.Data.MetadataFile)
	if err := writeMetadata(metaPath, recipes); err != nil {
		common.LogFatal("Failed to write metadata", zap.Error(err))
	}

	idx := index.Build(recipes)
	idxPath := filepath.Join(*outdir, cfg.Data.IngredientIndexFile)
	if err := idx.Save(idxPath); err != nil {
		common.LogFatal("Failed to write ingredient index", zap.Error(err))
	}

	common.LogInfo("索引已建置",
		zap.String("metadata", metaPath),
		zap.String("index", idxPath),
		zap.Int("indexed_ingredients", idx.Len()),
	)

	if *buildVectors {
		if err := buildVectorIndex(cfg, recipes, *batchSize, *embedWorkers); err != nil {
			common.LogFatal("Failed to build vector index", zap.Error(err))
		}
	}

	common.LogInfo("資料集建置完成",
		zap.Int("recipes", len(recipes)),
		zap.Duration("total_elapsed", time.Since(start)),
	)
}

// readCSV 串流讀取 CSV，欄位依標頭對應。NER 欄優先以 JSON 陣列解析,
// 失敗時退回逗號切分。
func readCSV(path string, sample int) ([]*store.Recipe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(bufio.NewReaderSize(f, 1<<20))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"title", "ner"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("dataset is missing required column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var recipes []*store.Recipe
	id := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		title := field(row, "title")
		ner := parseList(field(row, "ner"))
		if title == "" || len(ner) == 0 {
			continue
		}

		recipes = append(recipes, &store.Recipe{
			ID:          id,
			Title:       title,
			Ingredients: ner,
			Directions:  parseList(field(row, "directions")),
			Link:        field(row, "link"),
			Source:      field(row, "source"),
		})
		id++

		if sample > 0 && len(recipes) >= sample {
			break
		}
	}
	return recipes, nil
}

// parseList 解析欄位值為字串列表
func parseList(raw string) []string {
	if raw == "" {
		return nil
	}

	var parsed []string
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		out := parsed[:0]
		for _, item := range parsed {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out
	}

	// 退回逗號切分
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// writeMetadata 以 JSONL 逐行輸出食譜
func writeMetadata(path string, recipes []*store.Recipe) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create metadata file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 1<<20)
	enc := json.NewEncoder(w)
	for _, recipe := range recipes {
		if err := enc.Encode(recipe); err != nil {
			return fmt.Errorf("failed to encode recipe %d: %w", recipe.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush metadata file: %w", err)
	}
	return f.Close()
}

// batch 嵌入工作單位
type batch struct {
	ids   []int
	texts []string
}

// buildVectorIndex 以工作池批次嵌入食譜文字並寫入向量庫
func buildVectorIndex(cfg *config.Config, recipes []*store.Recipe, batchSize, workers int) error {
	if !cfg.Embedding.Enabled || !cfg.Vector.Enabled {
		return fmt.Errorf("embedding and vector store must both be enabled to build vectors")
	}
	if batchSize <= 0 {
		batchSize = 64
	}
	if workers <= 0 {
		workers = 1
	}

	embedder := embedding.NewClient(&cfg.Embedding)
	qdrant := vector.NewQdrantClient(&cfg.Vector)

	ctx := context.Background()
	if err := qdrant.EnsureCollection(ctx, cfg.Embedding.Dimension); err != nil {
		return fmt.Errorf("failed to prepare collection: %w", err)
	}

	batches := make(chan batch)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	var failed int32
	var done int64
	var mu sync.Mutex

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range batches {
				// 任一批次失敗後其餘批次只出隊不處理，讓派工端能結束
				if atomic.LoadInt32(&failed) != 0 {
					continue
				}

				vecs, err := embedder.EmbedBatch(ctx, b.texts)
				if err != nil {
					atomic.StoreInt32(&failed, 1)
					errs <- fmt.Errorf("embedding batch failed: %w", err)
					continue
				}

				points := make([]vector.Point, 0, len(b.ids))
				for i, id := range b.ids {
					embedding.NormalizeVector(vecs[i])
					points = append(points, vector.Point{ID: id, Vector: vecs[i]})
				}
				if err := qdrant.Upsert(ctx, points); err != nil {
					atomic.StoreInt32(&failed, 1)
					errs <- fmt.Errorf("vector upsert failed: %w", err)
					continue
				}

				mu.Lock()
				done += int64(len(b.ids))
				if done%10000 < int64(len(b.ids)) {
					common.LogInfo("向量建置進度", zap.Int64("embedded", done))
				}
				mu.Unlock()
			}
		}()
	}

	// 分批派工
	feed := func() {
		defer close(batches)
		current := batch{}
		for _, recipe := range recipes {
			current.ids = append(current.ids, recipe.ID)
			current.texts = append(current.texts, embedding.RecipeText(recipe.Title, recipe.Ingredients))
			if len(current.ids) >= batchSize {
				batches <- current
				current = batch{}
			}
		}
		if len(current.ids) > 0 {
			batches <- current
		}
	}
	go feed()

	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return err
	}

	common.LogInfo("向量索引已建置",
		zap.Int64("embedded", done),
		zap.String("collection", cfg.Vector.Collection),
	)
	return nil
}
