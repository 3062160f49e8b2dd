package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/abhisek/socratic/internal/session"
)

const (
	defaultMongoDatabase = "socratic"
	sessionsCollection   = "sessions"
	eventsCollection     = "llm_requests"
	countersCollection   = "counters"
)

// MongoStore keeps one document per session, keyed by code. Updates are
// merged on the server with $set for replaced fields and $push for
// transcript entries. A TTL index on expires_at drops expired sessions.
type MongoStore struct {
	client   *mongo.Client
	sessions *mongo.Collection
	events   *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

// OpenMongo connects to uri and prepares the collections and indexes.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("open mongo: empty uri")
	}
	if database == "" {
		database = defaultMongoDatabase
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	m := &MongoStore{
		client:   client,
		sessions: db.Collection(sessionsCollection),
		events:   db.Collection(eventsCollection),
		counters: db.Collection(countersCollection),
		now:      time.Now,
	}

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
	if _, err := m.sessions.Indexes().CreateMany(ctx, indexes); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("create session indexes: %w", err)
	}
	if _, err := m.events.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "purpose", Value: 1}},
	}); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("create event indexes: %w", err)
	}
	return m, nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// EventRepo returns the LLM request log backed by this store.
func (m *MongoStore) EventRepo() EventRepo { return &mongoEventRepo{store: m} }

func (m *MongoStore) Get(ctx context.Context, code string) (*session.Session, error) {
	var out session.Session
	err := m.sessions.FindOne(ctx, bson.M{"_id": code}).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(code)
		}
		return nil, fmt.Errorf("load session %s: %w", code, err)
	}
	return live(&out, code, m.now())
}

func (m *MongoStore) Create(ctx context.Context, s *session.Session) error {
	if err := checkWrite(s); err != nil {
		return err
	}

	// The TTL monitor runs about once a minute; clear a stale holder of
	// the code before inserting.
	_, err := m.sessions.DeleteOne(ctx, bson.M{
		"_id":        s.Code,
		"expires_at": bson.M{"$lte": m.now()},
	})
	if err != nil {
		return fmt.Errorf("clear expired session: %w", err)
	}

	if _, err := m.sessions.InsertOne(ctx, s); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return codeTaken(s.Code)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (m *MongoStore) Put(ctx context.Context, s *session.Session) error {
	if err := checkWrite(s); err != nil {
		return err
	}
	_, err := m.sessions.ReplaceOne(ctx, bson.M{"_id": s.Code}, s, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("write session %s: %w", s.Code, err)
	}
	return nil
}

// Update validates the merged result locally, then applies the patch on
// the server. Callers serialize mutations per code with a lock, so the
// document cannot change between the read and the update.
func (m *MongoStore) Update(ctx context.Context, code string, p session.Patch) (*session.Session, error) {
	cur, err := m.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	cur.Apply(p)
	if err := checkWrite(cur); err != nil {
		return nil, err
	}
	if p.Empty() {
		return cur, nil
	}

	var out session.Session
	err = m.sessions.FindOneAndUpdate(ctx, bson.M{"_id": code}, patchUpdate(p),
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(code)
		}
		return nil, fmt.Errorf("update session %s: %w", code, err)
	}
	return &out, nil
}

// patchUpdate translates a merge patch into a Mongo update document.
func patchUpdate(p session.Patch) bson.M {
	set := bson.M{}
	if p.Problems != nil {
		set["problems"] = p.Problems
	}
	if p.CurrentProblemID != nil {
		set["current_problem_id"] = p.CurrentProblemID.ID
	}
	if p.Streak != nil {
		set["streak_progress"] = p.Streak.Progress
		set["streak_completions"] = p.Streak.Completions
		set["streak_completed"] = p.Streak.Completed
		set["streak_reset_pending"] = p.Streak.ResetPending
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(p.AppendTranscript) > 0 {
		update["$push"] = bson.M{"transcript": bson.M{"$each": p.AppendTranscript}}
	}
	return update
}

func (m *MongoStore) Delete(ctx context.Context, code string) error {
	res, err := m.sessions.DeleteOne(ctx, bson.M{"_id": code})
	if err != nil {
		return fmt.Errorf("delete session %s: %w", code, err)
	}
	if res.DeletedCount == 0 {
		return notFound(code)
	}
	return nil
}

func (m *MongoStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := m.sessions.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	return int(res.DeletedCount), nil
}

// mongoEventRepo stores LLM request events with ids drawn from a counter
// document, so ordering matches the SQL store.
type mongoEventRepo struct {
	store *MongoStore
}

func (r *mongoEventRepo) nextID(ctx context.Context) (int64, error) {
	var c struct {
		Seq int64 `bson:"seq"`
	}
	err := r.store.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": eventsCollection},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("next event id: %w", err)
	}
	return c.Seq, nil
}

func (r *mongoEventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}
	ev := LLMRequestEvent{ID: id, Timestamp: r.store.now(), LLMRequestEventData: data}
	if _, err := r.store.events.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *mongoEventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	filter := bson.M{}
	id := bson.M{}
	if opts.After > 0 {
		id["$gt"] = opts.After
	}
	if opts.Before > 0 {
		id["$lt"] = opts.Before
	}
	if len(id) > 0 {
		filter["_id"] = id
	}
	ts := bson.M{}
	if !opts.From.IsZero() {
		ts["$gte"] = opts.From
	}
	if !opts.To.IsZero() {
		ts["$lte"] = opts.To
	}
	if len(ts) > 0 {
		filter["timestamp"] = ts
	}
	if opts.Purpose != "" {
		filter["purpose"] = opts.Purpose
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	cur, err := r.store.events.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	var out []LLMRequestEvent
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode LLM events: %w", err)
	}
	return out, nil
}

func (r *mongoEventRepo) GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error) {
	var ev LLMRequestEvent
	err := r.store.events.FindOne(ctx, bson.M{"_id": id}).Decode(&ev)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &session.NotFoundError{Resource: "llm event", Key: strconv.FormatInt(id, 10)}
		}
		return nil, fmt.Errorf("get LLM event: %w", err)
	}
	return &ev, nil
}

func (r *mongoEventRepo) LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$purpose"},
			{Key: "calls", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "input_tokens", Value: bson.D{{Key: "$sum", Value: "$input_tokens"}}},
			{Key: "output_tokens", Value: bson.D{{Key: "$sum", Value: "$output_tokens"}}},
			{Key: "avg_latency", Value: bson.D{{Key: "$avg", Value: "$latency_ms"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cur, err := r.store.events.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("usage by purpose: %w", err)
	}
	var rows []struct {
		Purpose      string  `bson:"_id"`
		Calls        int     `bson:"calls"`
		InputTokens  int     `bson:"input_tokens"`
		OutputTokens int     `bson:"output_tokens"`
		AvgLatency   float64 `bson:"avg_latency"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode usage: %w", err)
	}
	out := make([]PurposeUsage, 0, len(rows))
	for _, row := range rows {
		out = append(out, PurposeUsage{
			Purpose:      row.Purpose,
			Calls:        row.Calls,
			InputTokens:  row.InputTokens,
			OutputTokens: row.OutputTokens,
			AvgLatencyMs: int64(row.AvgLatency),
		})
	}
	return out, nil
}

func (r *mongoEventRepo) LLMUsageByModel(ctx context.Context) ([]ModelUsage, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$model"},
			{Key: "calls", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "input_tokens", Value: bson.D{{Key: "$sum", Value: "$input_tokens"}}},
			{Key: "output_tokens", Value: bson.D{{Key: "$sum", Value: "$output_tokens"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cur, err := r.store.events.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("usage by model: %w", err)
	}
	var rows []struct {
		Model        string `bson:"_id"`
		Calls        int    `bson:"calls"`
		InputTokens  int    `bson:"input_tokens"`
		OutputTokens int    `bson:"output_tokens"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode usage: %w", err)
	}
	out := make([]ModelUsage, 0, len(rows))
	for _, row := range rows {
		out = append(out, ModelUsage{
			Model:        row.Model,
			Calls:        row.Calls,
			InputTokens:  row.InputTokens,
			OutputTokens: row.OutputTokens,
		})
	}
	return out, nil
}
