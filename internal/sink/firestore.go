package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"github.com/i474232898/aqi-traffic-ingestion/internal/ingest"
)

// FirestoreSink stores each merged record as a document named
// "<cycle id>-<row index>" in one collection.
type FirestoreSink struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreSink creates the client with the credentials file when it
// exists and default authentication otherwise.
func NewFirestoreSink(ctx context.Context, projectID, collection, credentialsFile string, logger *slog.Logger) (*FirestoreSink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err == nil {
			opts = append(opts, option.WithCredentialsFile(credentialsFile))
		}
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	logger.Info("firestore client initialized", "project", projectID, "collection", collection)

	return &FirestoreSink{client: client, collection: collection}, nil
}

func (f *FirestoreSink) Name() string {
	return "firestore"
}

type firestoreRecord struct {
	CycleID            string   `firestore:"cycleId"`
	Lat                float64  `firestore:"lat"`
	Lon                float64  `firestore:"lon"`
	AQI                *float64 `firestore:"aqi"`
	Name               string   `firestore:"name"`
	Timestamp          string   `firestore:"timestamp"`
	FRC                *string  `firestore:"frc"`
	CurrentSpeed       *float64 `firestore:"currentSpeed"`
	FreeFlowSpeed      *float64 `firestore:"freeFlowSpeed"`
	CurrentTravelTime  *float64 `firestore:"currentTravelTime"`
	FreeFlowTravelTime *float64 `firestore:"freeFlowTravelTime"`
	Confidence         *float64 `firestore:"confidence"`
	RoadClosure        *bool    `firestore:"roadClosure"`
}

func toFirestoreRecord(cycleID string, r ingest.MergedRecord) firestoreRecord {
	return firestoreRecord{
		CycleID:            cycleID,
		Lat:                r.Lat,
		Lon:                r.Lon,
		AQI:                r.AQI,
		Name:               r.Name,
		Timestamp:          r.Timestamp.Format(ingest.TimestampLayout),
		FRC:                r.FRC,
		CurrentSpeed:       r.CurrentSpeed,
		FreeFlowSpeed:      r.FreeFlowSpeed,
		CurrentTravelTime:  r.CurrentTravelTime,
		FreeFlowTravelTime: r.FreeFlowTravelTime,
		Confidence:         r.Confidence,
		RoadClosure:        r.RoadClosure,
	}
}

func (f *FirestoreSink) Write(ctx context.Context, batch ingest.Batch) error {
	if len(batch.Records) == 0 {
		return nil
	}

	cycleID := batch.CycleID.String()
	col := f.client.Collection(f.collection)
	bw := f.client.BulkWriter(ctx)

	jobs := make([]*firestore.BulkWriterJob, 0, len(batch.Records))
	for i, r := range batch.Records {
		doc := col.Doc(cycleID + "-" + strconv.Itoa(i))
		job, err := bw.Set(doc, toFirestoreRecord(cycleID, r))
		if err != nil {
			bw.End()
			return fmt.Errorf("queue firestore write %s: %w", doc.ID, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("firestore write: %w", err)
		}
	}
	return nil
}

func (f *FirestoreSink) Close() error {
	return f.client.Close()
}
