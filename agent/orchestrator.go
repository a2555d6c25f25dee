package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/byerlikaya/SmartRAG-sub013/config"
	"github.com/byerlikaya/SmartRAG-sub013/database"
	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/llmclient"
	"github.com/byerlikaya/SmartRAG-sub013/prompts"
	"github.com/byerlikaya/SmartRAG-sub013/rag"
	"github.com/byerlikaya/SmartRAG-sub013/store"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"go.uber.org/zap"
)

// Orchestrator is the top-level query pipeline: tag parsing, concurrent
// document search and intent analysis, strategy routing, SQL generation and
// execution, merging, and session bookkeeping.
type Orchestrator struct {
	cfg           *config.Config
	provider      llmclient.Provider
	searcher      *rag.Searcher
	analyzer      *IntentAnalyzer
	generator     *database.SQLGenerator
	coordinator   *database.Coordinator
	merger        *ResultMerger
	detector      *rag.MissingAnswerDetector
	conversations store.ConversationStore

	// sessionLocks serializes turn appends per session while letting
	// concurrent readers share.
	sessionLocks *sessionLocker
	logger       *zap.Logger
}

func NewOrchestrator(
	cfg *config.Config,
	provider llmclient.Provider,
	searcher *rag.Searcher,
	coordinator *database.Coordinator,
	generator *database.SQLGenerator,
	detector *rag.MissingAnswerDetector,
	conversations store.ConversationStore,
	logger *zap.Logger,
) *Orchestrator {
	o := &Orchestrator{
		cfg:           cfg,
		provider:      provider,
		searcher:      searcher,
		coordinator:   coordinator,
		generator:     generator,
		detector:      detector,
		conversations: conversations,
		sessionLocks:  newSessionLocker(),
		logger:        logger,
	}
	if coordinator != nil {
		o.analyzer = NewIntentAnalyzer(provider, coordinator.Schemas(), logger)
	}
	o.merger = NewResultMerger(provider, detector, logger)
	return o
}

func (o *Orchestrator) defaultOptions() types.SearchOptions {
	return types.SearchOptions{
		EnableDocumentSearch: o.cfg.Features.EnableDocumentSearch,
		EnableDatabaseSearch: o.cfg.Features.EnableDatabaseSearch,
		EnableAudioSearch:    o.cfg.Features.EnableAudioParsing,
		EnableImageSearch:    o.cfg.Features.EnableImageParsing,
	}
}

func (o *Orchestrator) hasDatabases() bool {
	return o.coordinator != nil && o.coordinator.HasConnections()
}

func (o *Orchestrator) responseConfiguration() types.ResponseConfiguration {
	return types.ResponseConfiguration{
		AIProvider:      o.provider.Name(),
		StorageProvider: o.cfg.StorageProvider,
		Model:           o.provider.Model(),
	}
}

// Answer runs the full pipeline for one query. The session is mutated only
// when the whole pipeline succeeds; cancellation and errors leave it
// untouched.
func (o *Orchestrator) Answer(ctx context.Context, sessionID, rawQuery string) (*types.RagResponse, error) {
	if strings.TrimSpace(rawQuery) == "" {
		return nil, smarterrors.Wrap(smarterrors.ErrInvalidInput, "empty query")
	}
	query, tags, err := ParseTags(rawQuery)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, smarterrors.Wrap(smarterrors.ErrInvalidInput, "query contains only tags")
	}
	opts := tags.ApplyToOptions(o.defaultOptions())
	if tags.DatabaseOnly && !o.hasDatabases() {
		// A forced database mode with nothing to serve it degrades to the
		// document path rather than reporting no backends at all.
		opts.EnableDocumentSearch = o.cfg.Features.EnableDocumentSearch
	}

	documentsAvailable := opts.EnableDocumentSearch
	databasesAvailable := opts.EnableDatabaseSearch && o.hasDatabases()
	if !documentsAvailable && !databasesAvailable {
		return o.unconfiguredResponse(query), nil
	}

	history, err := o.loadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	historyText := renderHistory(history)

	docResult, intent, err := o.retrieve(ctx, query, opts, tags, documentsAvailable, databasesAvailable)
	if err != nil {
		return nil, err
	}

	strategy := chooseStrategy(routeInput{
		tags:         tags,
		intent:       intent,
		docResult:    docResult,
		hasDatabases: databasesAvailable,
		strongDocHit: docResult.Strong(),
	})
	o.logger.Info("Strategy selected",
		zap.String("strategy", string(strategy)),
		zap.Bool("strong_document_match", docResult.Strong()),
		zap.Float64("intent_confidence", intentConfidence(intent)))

	answer, sources, err := o.execute(ctx, strategy, query, opts, tags, historyText, docResult, intent)
	if err != nil {
		return nil, err
	}
	if tags.DatabaseOnly && !databasesAvailable {
		sources = append(sources, types.SearchSource{
			SourceType:      types.SourceTypeSystem,
			RelevantContent: "Database search was requested but no database connection is configured; the answer comes from documents only.",
		})
	}
	if ctx.Err() != nil {
		return nil, smarterrors.Wrap(smarterrors.ErrCancelled, ctx.Err().Error())
	}

	response := &types.RagResponse{
		Query:         query,
		Answer:        answer,
		Sources:       sources,
		SearchedAt:    time.Now().UTC(),
		Configuration: o.responseConfiguration(),
	}

	if sessionID != "" {
		sl := o.sessionLocks.acquire(sessionID)
		sl.mu.Lock()
		err := o.conversations.Append(ctx, sessionID, query, answer, sources)
		sl.mu.Unlock()
		o.sessionLocks.release(sessionID, sl)
		if err != nil {
			return nil, err
		}
	}
	return response, nil
}

func intentConfidence(intent *types.QueryIntent) float64 {
	if intent == nil {
		return 0
	}
	return intent.Confidence
}

func (o *Orchestrator) loadHistory(ctx context.Context, sessionID string) ([]types.ConversationTurn, error) {
	if sessionID == "" {
		return nil, nil
	}
	sl := o.sessionLocks.acquire(sessionID)
	sl.mu.RLock()
	turns, err := o.conversations.GetHistory(ctx, sessionID)
	sl.mu.RUnlock()
	o.sessionLocks.release(sessionID, sl)
	if err != nil {
		return nil, err
	}
	return windowTurns(turns, o.cfg.MaxConversationTurns), nil
}

type docOutcome struct {
	result *rag.SearchResult
	err    error
}

// retrieve runs document search and intent analysis concurrently. A strong
// document match arriving first cancels the intent call's downstream usage
// unless the tags force a database mode.
func (o *Orchestrator) retrieve(
	ctx context.Context,
	query string,
	opts types.SearchOptions,
	tags TagSet,
	documentsAvailable, databasesAvailable bool,
) (*rag.SearchResult, *types.QueryIntent, error) {
	intentCtx, cancelIntent := context.WithCancel(ctx)
	defer cancelIntent()

	docCh := make(chan docOutcome, 1)
	intentCh := make(chan *types.QueryIntent, 1)

	if documentsAvailable {
		go func() {
			result, err := o.searcher.Search(ctx, query, opts)
			docCh <- docOutcome{result: result, err: err}
		}()
	} else {
		docCh <- docOutcome{result: &rag.SearchResult{}}
	}

	if databasesAvailable {
		go func() {
			intentCh <- o.analyzer.Analyze(intentCtx, query)
		}()
	} else {
		intentCh <- &types.QueryIntent{OriginalQuery: query, Confidence: 0}
	}

	doc := <-docCh
	if doc.err != nil {
		cancelIntent()
		<-intentCh
		return nil, nil, doc.err
	}

	forced := tags.ForcedStrategy()
	if doc.result.Strong() && forced != types.StrategyDatabaseOnly && forced != types.StrategyHybrid {
		// A strong document match makes the intent result irrelevant;
		// cancel the LLM call and drain the channel.
		cancelIntent()
		<-intentCh
		return doc.result, &types.QueryIntent{OriginalQuery: query, Confidence: 0}, nil
	}

	intent := <-intentCh
	return doc.result, intent, nil
}

// execute runs the chosen strategy to completion.
func (o *Orchestrator) execute(
	ctx context.Context,
	strategy types.Strategy,
	query string,
	opts types.SearchOptions,
	tags TagSet,
	historyText string,
	docResult *rag.SearchResult,
	intent *types.QueryIntent,
) (string, []types.SearchSource, error) {
	switch strategy {
	case types.StrategyDocumentOnly:
		return o.executeDocumentOnly(ctx, query, opts, historyText, docResult)

	case types.StrategyDatabaseOnly:
		dbResults := o.runDatabaseSide(ctx, intent, tags.DatabaseOnly)
		return o.merger.Merge(ctx, mergeInput{
			query:     query,
			language:  opts.PreferredLanguage,
			history:   historyText,
			docResult: &rag.SearchResult{},
			dbResults: dbResults,
		})

	default: // Hybrid
		var docAnswer string
		var dbResults []database.QueryResult

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			dbResults = o.runDatabaseSide(ctx, intent, tags.DatabaseOnly)
		}()
		go func() {
			defer wg.Done()
			if docResult.HasMatches() {
				docAnswer, _ = o.generateDocumentAnswer(ctx, query, opts, historyText, docResult)
			}
		}()
		wg.Wait()
		if ctx.Err() != nil {
			return "", nil, smarterrors.Wrap(smarterrors.ErrCancelled, ctx.Err().Error())
		}

		return o.merger.Merge(ctx, mergeInput{
			query:     query,
			language:  opts.PreferredLanguage,
			history:   historyText,
			docResult: docResult,
			dbResults: dbResults,
			docAnswer: docAnswer,
		})
	}
}

func (o *Orchestrator) executeDocumentOnly(
	ctx context.Context,
	query string,
	opts types.SearchOptions,
	historyText string,
	docResult *rag.SearchResult,
) (string, []types.SearchSource, error) {
	if !docResult.HasMatches() {
		return rag.MissingDataMarker, nil, nil
	}
	answer, err := o.generateDocumentAnswer(ctx, query, opts, historyText, docResult)
	if err != nil {
		return "", nil, err
	}
	return answer, docResult.Sources, nil
}

func (o *Orchestrator) generateDocumentAnswer(
	ctx context.Context,
	query string,
	opts types.SearchOptions,
	historyText string,
	docResult *rag.SearchResult,
) (string, error) {
	prompt := prompts.Render(prompts.DocumentAnswer(), map[string]string{
		"HISTORY":  historyText,
		"CONTEXT":  docResult.Context,
		"QUERY":    query,
		"LANGUAGE": languageName(opts.PreferredLanguage),
	})
	answer, err := o.provider.GenerateText(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// runDatabaseSide generates SQL per intent and executes the valid ones.
// Generation failures become failed results so they surface as System
// sources without sinking the batch. When the database mode is forced by
// tag and the analyzer produced nothing, one broad intent per configured
// database is synthesized.
func (o *Orchestrator) runDatabaseSide(ctx context.Context, intent *types.QueryIntent, forced bool) []database.QueryResult {
	if o.coordinator == nil || !o.coordinator.HasConnections() {
		return nil
	}
	var intents []types.DatabaseQueryIntent
	if intent != nil {
		intents = intent.DatabaseQueries
	}
	if len(intents) == 0 {
		if !forced {
			return nil
		}
		intents = o.synthesizeIntents(intent)
	}

	runnable := make([]types.DatabaseQueryIntent, 0, len(intents))
	var failed []database.QueryResult
	for i := range intents {
		it := intents[i]
		dialect, err := o.coordinator.DialectForConnection(it.DatabaseID)
		if err == nil {
			err = o.generator.Generate(ctx, &it, dialect)
		}
		if err != nil {
			o.logger.Warn("SQL generation failed",
				zap.String("database_id", it.DatabaseID),
				zap.Error(err))
			failed = append(failed, database.QueryResult{
				DatabaseID:   it.DatabaseID,
				DatabaseName: it.DatabaseName,
				Purpose:      it.Purpose,
				Tables:       it.RequiredTables,
				Err:          err,
			})
			continue
		}
		runnable = append(runnable, it)
	}

	results := o.coordinator.ExecuteIntents(ctx, runnable)
	return append(results, failed...)
}

func (o *Orchestrator) synthesizeIntents(intent *types.QueryIntent) []types.DatabaseQueryIntent {
	purpose := "Answer the question using this database"
	if intent != nil && intent.OriginalQuery != "" {
		purpose = "Answer: " + intent.OriginalQuery
	}
	var intents []types.DatabaseQueryIntent
	for _, schema := range o.coordinator.Schemas().All() {
		intents = append(intents, types.DatabaseQueryIntent{
			DatabaseID:     schema.DatabaseID,
			DatabaseName:   schema.DatabaseName,
			RequiredTables: schema.TableNames(),
			Purpose:        purpose,
		})
	}
	return intents
}

func (o *Orchestrator) unconfiguredResponse(query string) *types.RagResponse {
	return &types.RagResponse{
		Query:      query,
		Answer:     "",
		SearchedAt: time.Now().UTC(),
		Sources: []types.SearchSource{{
			SourceType:      types.SourceTypeSystem,
			RelevantContent: "No retrieval backends are available: document search is disabled and no database connections are configured.",
		}},
		Configuration: o.responseConfiguration(),
	}
}
