package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"docquery/internal/audit"
	"docquery/internal/config"
	"docquery/internal/embedding"
	"docquery/internal/helper"
	"docquery/internal/ingest"
	"docquery/internal/models"
	"docquery/internal/parser"
	"docquery/internal/provider"
	"docquery/internal/rag"
	"docquery/internal/retrieval"
	"docquery/internal/store"
	"docquery/internal/synthesis"
	"docquery/internal/verify"
	"docquery/internal/websearch"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	filePath := flag.String("file", "", "Path to a document file to ingest")
	deleteDoc := flag.String("delete", "", "Document id whose chunk set should be removed")
	query := flag.String("query", "", "Question to be answered")
	mode := flag.String("mode", "hybrid", "Query mode: docs, web, hybrid, code")
	model := flag.String("model", "", "Model id for the primary answer")
	verifyFlag := flag.Bool("verify", false, "Cross-check the answer with a second provider")
	health := flag.Bool("health", false, "Probe every configured provider")
	orgID := flag.String("org", "", "Organization id (scope)")
	roomID := flag.String("room", "", "Room id (scope, optional)")
	ownerID := flag.String("owner", "", "Owner id (scope, optional)")
	docIDs := flag.String("docs", "", "Comma-separated document ids to restrict retrieval")
	flag.Parse()

	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()
	app, cleanup, err := buildApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error building engine")
	}
	defer cleanup()
	// flush pending audit appends before the store is closed
	defer app.audit.Wait()

	switch {
	case *health:
		runHealth(ctx, app)
	case *filePath != "":
		runIngest(ctx, app, *filePath, models.Scope{OrgID: *orgID, RoomID: *roomID, OwnerID: *ownerID})
	case *deleteDoc != "":
		if err := app.pipeline.DeleteDocument(ctx, *deleteDoc); err != nil {
			log.Fatal().Err(err).Msg("Error deleting document")
		}
		log.Info().Str("doc_id", *deleteDoc).Msg("Deleted document chunk set")
	case *query != "":
		runQuery(ctx, app, *query, *mode, *model, *verifyFlag, models.Scope{OrgID: *orgID, RoomID: *roomID, OwnerID: *ownerID}, *docIDs)
	default:
		log.Fatal().Msg("Provide -file to ingest, -query to ask, -delete to remove a document, or -health to probe providers")
	}
}

type app struct {
	cfg      *config.Config
	router   *provider.Router
	engine   *rag.Engine
	pipeline *ingest.Pipeline
	embedded *store.Embedded
	audit    *audit.Logger
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, func(), error) {
	router, err := provider.NewRouter(cfg)
	if err != nil {
		return nil, nil, err
	}

	embedder, err := embedding.NewChainFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	var chunkStore store.ChunkStore
	var embedded *store.Embedded
	switch cfg.Storage.Driver {
	case "postgres":
		dbClient, err := store.ConnectDB(&cfg.Storage)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgres(dbClient, cfg.Storage.Debug)
		if err := pg.InitDB(ctx); err != nil {
			return nil, nil, err
		}
		cleanup = func() { pg.Close() }
		chunkStore = pg
	default:
		embedded, err = store.NewEmbedded(cfg.Storage.Path, cfg.Storage.Path == "", cfg.Storage.Key)
		if err != nil {
			return nil, nil, err
		}
		chunkStore = embedded
	}

	timeout := time.Duration(cfg.RAG.TimeoutSeconds) * time.Second
	retriever := retrieval.NewEngine(chunkStore, cfg.RAG.VectorFloor, cfg.RAG.LexicalScore, cfg.RAG.SnippetMaxLen)
	web := websearch.NewClient(cfg.WebSearch.BaseURL, cfg.WebSearch.Key, cfg.WebSearch.Model, timeout)
	synth := synthesis.NewSynthesizer(router, web)
	verifier := verify.NewVerifier(router, cfg.Chains["verify"])
	auditLogger := audit.NewLogger(chunkStore, timeout)
	engine := rag.NewEngine(cfg, retriever, synth, verifier, auditLogger, embedder)

	extractor := parser.NewChain(router, cfg.RAG.RecoveryModel)
	pipeline := ingest.NewPipeline(extractor, embedder, chunkStore, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)

	return &app{cfg: cfg, router: router, engine: engine, pipeline: pipeline, embedded: embedded, audit: auditLogger}, cleanup, nil
}

func runHealth(ctx context.Context, a *app) {
	statuses := a.router.HealthProbe(ctx)
	helper.PrettyPrint(statuses)
}

func runIngest(ctx context.Context, a *app, filePath string, scope models.Scope) {
	if scope.OrgID == "" {
		log.Fatal().Msg("Ingestion requires -org")
	}
	res, err := a.pipeline.IngestFile(ctx, filePath, scope)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting document")
	}
	helper.PrettyPrint(res)

	// snapshot the embedded store when an encryption key is configured
	if a.embedded != nil && a.cfg.Storage.Key != "" && a.cfg.Storage.Path != "" {
		if err := a.embedded.Export(ctx); err != nil {
			log.Warn().Err(err).Msg("Error exporting embedded store")
		}
	}
}

func runQuery(ctx context.Context, a *app, question, modeStr, model string, verifyFlag bool, scope models.Scope, docIDs string) {
	mode, err := models.ParseMode(modeStr)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid mode")
	}

	req := models.QueryRequest{
		Question: question,
		Model:    model,
		Mode:     mode,
		Scope:    scope,
		Verifier: verifyFlag,
	}
	if docIDs != "" {
		req.DocIDs = strings.Split(docIDs, ",")
	}

	resp, err := a.engine.Query(ctx, req)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", question)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", resp.Answer)

	log.Info().Msg("Details: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	helper.PrettyPrint(resp)
}
