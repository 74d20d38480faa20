package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aquatrackmx/aquatrack/internal/domain/models"
	"github.com/aquatrackmx/aquatrack/internal/repository"
)

const (
	collCycles      = "cycles"
	collPonds       = "ponds"
	collProjections = "projections"
	collPlans       = "seeding_plans"
	collWaves       = "harvest_waves"
	collBiometries  = "biometries"
	collSOBChanges  = "sob_changes"
)

// Store implements repository.Store on MongoDB. Projection lines and
// plan/wave pond records live embedded in their parent documents, so a
// full-document replace is the unit of atomicity.
type Store struct {
	client *mongo.Client
	dbName string
}

var _ repository.Store = (*Store)(nil)

// NewStore connects to MongoDB and verifies the connection.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &Store{client: client, dbName: dbName}, nil
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) coll(name string) *mongo.Collection {
	return s.client.Database(s.dbName).Collection(name)
}

func (s *Store) CreateCycle(ctx context.Context, c *models.Cycle) error {
	if _, err := s.coll(collCycles).InsertOne(ctx, c); err != nil {
		return fmt.Errorf("failed to insert cycle: %w", err)
	}
	return nil
}

func (s *Store) GetCycle(ctx context.Context, id string) (*models.Cycle, error) {
	var c models.Cycle
	err := s.coll(collCycles).FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find cycle: %w", err)
	}
	return &c, nil
}

func (s *Store) UpdateCycle(ctx context.Context, c *models.Cycle) error {
	res, err := s.coll(collCycles).ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return fmt.Errorf("failed to update cycle: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) ListActiveCycles(ctx context.Context) ([]models.Cycle, error) {
	cur, err := s.coll(collCycles).Find(ctx, bson.M{"status": models.CycleActive})
	if err != nil {
		return nil, fmt.Errorf("failed to list active cycles: %w", err)
	}
	var out []models.Cycle
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode cycles: %w", err)
	}
	return out, nil
}

func (s *Store) CreatePond(ctx context.Context, p *models.Pond) error {
	if _, err := s.coll(collPonds).InsertOne(ctx, p); err != nil {
		return fmt.Errorf("failed to insert pond: %w", err)
	}
	return nil
}

func (s *Store) GetPond(ctx context.Context, id string) (*models.Pond, error) {
	var p models.Pond
	err := s.coll(collPonds).FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pond: %w", err)
	}
	return &p, nil
}

func (s *Store) ListPondsByFarm(ctx context.Context, farmID string, activeOnly bool) ([]models.Pond, error) {
	filter := bson.M{"farm_id": farmID}
	if activeOnly {
		filter["active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := s.coll(collPonds).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list ponds: %w", err)
	}
	var out []models.Pond
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode ponds: %w", err)
	}
	return out, nil
}

func (s *Store) CreateProjection(ctx context.Context, p *models.Projection) error {
	if _, err := s.coll(collProjections).InsertOne(ctx, p); err != nil {
		return fmt.Errorf("failed to insert projection: %w", err)
	}
	return nil
}

func (s *Store) ReplaceProjection(ctx context.Context, p *models.Projection) error {
	res, err := s.coll(collProjections).ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return fmt.Errorf("failed to replace projection: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteProjection(ctx context.Context, id string) error {
	res, err := s.coll(collProjections).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete projection: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) GetProjection(ctx context.Context, id string) (*models.Projection, error) {
	var p models.Projection
	err := s.coll(collProjections).FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find projection: %w", err)
	}
	return &p, nil
}

func (s *Store) ListProjections(ctx context.Context, cycleID string) ([]models.Projection, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.coll(collProjections).Find(ctx, bson.M{"cycle_id": cycleID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list projections: %w", err)
	}
	var out []models.Projection
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode projections: %w", err)
	}
	return out, nil
}

func (s *Store) findOneProjection(ctx context.Context, filter bson.M) (*models.Projection, error) {
	var p models.Projection
	err := s.coll(collProjections).FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find projection: %w", err)
	}
	return &p, nil
}

func (s *Store) CurrentProjection(ctx context.Context, cycleID string) (*models.Projection, error) {
	return s.findOneProjection(ctx, bson.M{
		"cycle_id":   cycleID,
		"is_current": true,
		"status":     bson.M{"$in": []models.ProjectionStatus{models.ProjectionPublished, models.ProjectionRevision}},
	})
}

func (s *Store) DraftProjection(ctx context.Context, cycleID string) (*models.Projection, error) {
	return s.findOneProjection(ctx, bson.M{
		"cycle_id": cycleID,
		"status":   models.ProjectionDraft,
	})
}

func (s *Store) ReforecastDraft(ctx context.Context, cycleID string) (*models.Projection, error) {
	return s.findOneProjection(ctx, bson.M{
		"cycle_id": cycleID,
		"status":   models.ProjectionDraft,
		"source":   models.SourceReforecast,
	})
}

func (s *Store) CountProjections(ctx context.Context, cycleID string) (int, error) {
	n, err := s.coll(collProjections).CountDocuments(ctx, bson.M{"cycle_id": cycleID})
	if err != nil {
		return 0, fmt.Errorf("failed to count projections: %w", err)
	}
	return int(n), nil
}

func (s *Store) SeedingPlanForCycle(ctx context.Context, cycleID string) (*models.SeedingPlan, error) {
	var plan models.SeedingPlan
	err := s.coll(collPlans).FindOne(ctx, bson.M{"cycle_id": cycleID}).Decode(&plan)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find seeding plan: %w", err)
	}
	return &plan, nil
}

func (s *Store) GetSeedingPlan(ctx context.Context, id string) (*models.SeedingPlan, error) {
	var plan models.SeedingPlan
	err := s.coll(collPlans).FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find seeding plan: %w", err)
	}
	return &plan, nil
}

func (s *Store) SaveSeedingPlan(ctx context.Context, plan *models.SeedingPlan) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll(collPlans).ReplaceOne(ctx, bson.M{"_id": plan.ID}, plan, opts); err != nil {
		return fmt.Errorf("failed to save seeding plan: %w", err)
	}
	return nil
}

func (s *Store) ListHarvestWaves(ctx context.Context, cycleID string) ([]models.HarvestWave, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})
	cur, err := s.coll(collWaves).Find(ctx, bson.M{"cycle_id": cycleID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list harvest waves: %w", err)
	}
	var out []models.HarvestWave
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode harvest waves: %w", err)
	}
	return out, nil
}

func (s *Store) GetHarvestWave(ctx context.Context, id string) (*models.HarvestWave, error) {
	var w models.HarvestWave
	err := s.coll(collWaves).FindOne(ctx, bson.M{"_id": id}).Decode(&w)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find harvest wave: %w", err)
	}
	return &w, nil
}

func (s *Store) SaveHarvestWave(ctx context.Context, wave *models.HarvestWave) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll(collWaves).ReplaceOne(ctx, bson.M{"_id": wave.ID}, wave, opts); err != nil {
		return fmt.Errorf("failed to save harvest wave: %w", err)
	}
	return nil
}

func (s *Store) DeleteHarvestWave(ctx context.Context, id string) error {
	res, err := s.coll(collWaves).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete harvest wave: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) InsertBiometry(ctx context.Context, b *models.Biometry) error {
	if _, err := s.coll(collBiometries).InsertOne(ctx, b); err != nil {
		return fmt.Errorf("failed to insert biometry: %w", err)
	}
	return nil
}

func (s *Store) BiometriesInWindow(ctx context.Context, cycleID string, from, to time.Time) ([]models.Biometry, error) {
	filter := bson.M{
		"cycle_id": cycleID,
		"date":     bson.M{"$gte": from, "$lte": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cur, err := s.coll(collBiometries).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list biometries: %w", err)
	}
	var out []models.Biometry
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode biometries: %w", err)
	}
	return out, nil
}

func (s *Store) LatestBiometry(ctx context.Context, cycleID, pondID string) (*models.Biometry, error) {
	filter := bson.M{"cycle_id": cycleID, "pond_id": pondID}
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})
	var b models.Biometry
	err := s.coll(collBiometries).FindOne(ctx, filter, opts).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest biometry: %w", err)
	}
	return &b, nil
}

func (s *Store) AppendSOBChange(ctx context.Context, change *models.SOBChange) error {
	if _, err := s.coll(collSOBChanges).InsertOne(ctx, change); err != nil {
		return fmt.Errorf("failed to append sob change: %w", err)
	}
	return nil
}

func (s *Store) LatestSOB(ctx context.Context, cycleID, pondID string) (*models.SOBChange, error) {
	filter := bson.M{"cycle_id": cycleID, "pond_id": pondID}
	opts := options.FindOne().SetSort(bson.D{{Key: "changed_at", Value: -1}})
	var c models.SOBChange
	err := s.coll(collSOBChanges).FindOne(ctx, filter, opts).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest sob change: %w", err)
	}
	return &c, nil
}
