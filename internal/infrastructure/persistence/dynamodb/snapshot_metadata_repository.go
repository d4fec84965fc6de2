package dynamodb

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/domain/valueobject"
)

const (
	defaultListLimit  = 24
	maxListLimit      = 100
	maxBatchWriteSize = 25
	maxBatchRetries   = 5

	snapshotMetadataGSI1 = "GSI1"

	attrPK          = "PK"
	attrSK          = "SK"
	attrGSI1PK      = "GSI1PK"
	attrGSI1SK      = "GSI1SK"
	attrProject     = "project"
	attrStage       = "stage"
	attrService     = "service"
	attrFormat      = "format"
	attrS3Key       = "s3_key"
	attrURL         = "url"
	attrContentType = "content_type"
	attrSizeBytes   = "size_bytes"
	attrRows        = "rows"
	attrColumns     = "columns"
	attrCapturedAt  = "captured_at"
	attrExpiresAt   = "expires_at"
)

type Config struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
}

// API is the subset of the DynamoDB client used by the repository.
type API interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// SnapshotMetadataRepository indexes heatmap snapshots per scope.
//
// Table layout:
//
//	PK     = SCOPE#<project>#<stage>#<service>
//	SK     = TS#<captured_ms>#FMT#<format>#KEY#<hash>
//	GSI1PK = SCOPE#<project>#<stage>#<service>#FMT#<format>
//	GSI1SK = TS#<captured_ms>#KEY#<hash>
type SnapshotMetadataRepository struct {
	client      API
	tableName   string
	strongReads bool
	retryDelay  time.Duration
}

type cursorMode string

const (
	cursorModeScope  cursorMode = "scope"
	cursorModeFormat cursorMode = "format"
)

type cursorPayload struct {
	Mode     cursorMode             `json:"mode"`
	ScopeKey string                 `json:"scope"`
	Format   string                 `json:"format,omitempty"`
	FromMS   int64                  `json:"from_ms,omitempty"`
	ToMS     int64                  `json:"to_ms,omitempty"`
	Key      map[string]cursorValue `json:"key"`
}

type cursorValue struct {
	S string `json:"s,omitempty"`
	N string `json:"n,omitempty"`
}

func NewSnapshotMetadataRepository(ctx context.Context, cfg Config) (*SnapshotMetadataRepository, error) {
	if strings.TrimSpace(cfg.TableName) == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}

	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	accessKeyID := strings.TrimSpace(cfg.AccessKeyID)
	secretAccessKey := strings.TrimSpace(cfg.SecretAccessKey)
	if accessKeyID != "" || secretAccessKey != "" {
		if accessKeyID == "" || secretAccessKey == "" {
			return nil, fmt.Errorf("both dynamodb access key id and secret access key are required for static credentials")
		}
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config for dynamodb: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = aws.String(endpoint)
		}
	})

	return NewSnapshotMetadataRepositoryWithClient(client, cfg.TableName, cfg.StrongReads), nil
}

// NewSnapshotMetadataRepositoryWithClient wraps an existing client.
func NewSnapshotMetadataRepositoryWithClient(client API, tableName string, strongReads bool) *SnapshotMetadataRepository {
	return &SnapshotMetadataRepository{
		client:      client,
		tableName:   strings.TrimSpace(tableName),
		strongReads: strongReads,
		retryDelay:  100 * time.Millisecond,
	}
}

func (r *SnapshotMetadataRepository) PutBatch(ctx context.Context, records []port.SnapshotMetadata) error {
	if len(records) == 0 {
		return nil
	}

	for start := 0; start < len(records); start += maxBatchWriteSize {
		end := start + maxBatchWriteSize
		if end > len(records) {
			end = len(records)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, record := range records[start:end] {
			item, err := toItem(record)
			if err != nil {
				return err
			}
			requests = append(requests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		if err := r.writeBatchWithRetry(ctx, requests); err != nil {
			return err
		}
	}

	return nil
}

func (r *SnapshotMetadataRepository) ListByScope(
	ctx context.Context,
	query port.SnapshotListQuery,
) (port.SnapshotListPage, error) {
	scope, err := valueobject.NewScope(query.Project, query.Stage, query.Service)
	if err != nil {
		return port.SnapshotListPage{}, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	format := strings.TrimSpace(query.Format)
	fromMS, toMS, hasRange, err := normalizeTimeRange(query.From, query.To)
	if err != nil {
		return port.SnapshotListPage{}, err
	}

	mode := cursorModeScope
	if format != "" {
		mode = cursorModeFormat
	}

	input := &dynamodb.QueryInput{
		TableName:                 &r.tableName,
		Limit:                     aws.Int32(int32(limit)),
		ScanIndexForward:          aws.Bool(false),
		ConsistentRead:            aws.Bool(r.strongReads),
		ExpressionAttributeNames:  map[string]string{},
		ExpressionAttributeValues: map[string]types.AttributeValue{},
	}

	if mode == cursorModeScope {
		input.ExpressionAttributeNames["#pk"] = attrPK
		input.ExpressionAttributeValues[":pk"] = &types.AttributeValueMemberS{Value: buildPK(scope)}
		keyCondition := "#pk = :pk"
		if hasRange {
			input.ExpressionAttributeNames["#sk"] = attrSK
			input.ExpressionAttributeValues[":from"] = &types.AttributeValueMemberS{Value: buildSortLowerBound(fromMS)}
			input.ExpressionAttributeValues[":to"] = &types.AttributeValueMemberS{Value: buildSortUpperBound(toMS)}
			keyCondition += " AND #sk BETWEEN :from AND :to"
		}
		input.KeyConditionExpression = &keyCondition
	} else {
		input.IndexName = aws.String(snapshotMetadataGSI1)
		input.ConsistentRead = nil
		input.ExpressionAttributeNames["#gsi1pk"] = attrGSI1PK
		input.ExpressionAttributeValues[":pk"] = &types.AttributeValueMemberS{Value: buildGSI1PK(scope, format)}
		keyCondition := "#gsi1pk = :pk"
		if hasRange {
			input.ExpressionAttributeNames["#gsi1sk"] = attrGSI1SK
			input.ExpressionAttributeValues[":from"] = &types.AttributeValueMemberS{Value: buildSortLowerBound(fromMS)}
			input.ExpressionAttributeValues[":to"] = &types.AttributeValueMemberS{Value: buildSortUpperBound(toMS)}
			keyCondition += " AND #gsi1sk BETWEEN :from AND :to"
		}
		input.KeyConditionExpression = &keyCondition
	}

	if strings.TrimSpace(query.Cursor) != "" {
		exclusiveStartKey, err := decodeCursor(query.Cursor, mode, scope.Key(), format, fromMS, toMS)
		if err != nil {
			return port.SnapshotListPage{}, err
		}
		input.ExclusiveStartKey = exclusiveStartKey
	}

	output, err := r.client.Query(ctx, input)
	if err != nil {
		return port.SnapshotListPage{}, fmt.Errorf("dynamodb query failed: %w", err)
	}

	items := make([]port.SnapshotMetadata, 0, len(output.Items))
	for _, raw := range output.Items {
		item, err := fromItem(raw)
		if err != nil {
			return port.SnapshotListPage{}, err
		}
		items = append(items, item)
	}

	nextCursor := ""
	if len(output.LastEvaluatedKey) > 0 {
		nextCursor, err = encodeCursor(output.LastEvaluatedKey, mode, scope.Key(), format, fromMS, toMS)
		if err != nil {
			return port.SnapshotListPage{}, err
		}
	}

	return port.SnapshotListPage{
		Items:      items,
		NextCursor: nextCursor,
	}, nil
}

func (r *SnapshotMetadataRepository) writeBatchWithRetry(ctx context.Context, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{
		r.tableName: requests,
	}

	for attempt := 0; attempt < maxBatchRetries; attempt++ {
		output, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: pending,
		})
		if err != nil {
			return fmt.Errorf("dynamodb batch write failed: %w", err)
		}

		if len(output.UnprocessedItems) == 0 {
			return nil
		}

		pending = output.UnprocessedItems
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * r.retryDelay):
		}
	}

	return fmt.Errorf("dynamodb batch write has unprocessed items after retries")
}

func toItem(record port.SnapshotMetadata) (map[string]types.AttributeValue, error) {
	scope, err := valueobject.NewScope(record.Project, record.Stage, record.Service)
	if err != nil {
		return nil, err
	}
	format := strings.TrimSpace(record.Format)
	s3Key := strings.TrimSpace(record.S3Key)
	if format == "" {
		return nil, fmt.Errorf("format is required")
	}
	if s3Key == "" {
		return nil, fmt.Errorf("s3_key is required")
	}

	capturedAt := record.CapturedAt.UTC()
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}
	capturedAtMS := capturedAt.UnixMilli()

	item := map[string]types.AttributeValue{
		attrPK:         &types.AttributeValueMemberS{Value: buildPK(scope)},
		attrSK:         &types.AttributeValueMemberS{Value: buildSK(capturedAtMS, format, s3Key)},
		attrGSI1PK:     &types.AttributeValueMemberS{Value: buildGSI1PK(scope, format)},
		attrGSI1SK:     &types.AttributeValueMemberS{Value: buildGSI1SK(capturedAtMS, s3Key)},
		attrProject:    &types.AttributeValueMemberS{Value: scope.Project()},
		attrStage:      &types.AttributeValueMemberS{Value: scope.Stage()},
		attrService:    &types.AttributeValueMemberS{Value: scope.Service()},
		attrFormat:     &types.AttributeValueMemberS{Value: format},
		attrS3Key:      &types.AttributeValueMemberS{Value: s3Key},
		attrCapturedAt: &types.AttributeValueMemberN{Value: strconv.FormatInt(capturedAtMS, 10)},
		attrRows:       &types.AttributeValueMemberN{Value: strconv.Itoa(record.Rows)},
		attrColumns:    &types.AttributeValueMemberN{Value: strconv.Itoa(record.Columns)},
	}

	if url := strings.TrimSpace(record.URL); url != "" {
		item[attrURL] = &types.AttributeValueMemberS{Value: url}
	}
	if contentType := strings.TrimSpace(record.ContentType); contentType != "" {
		item[attrContentType] = &types.AttributeValueMemberS{Value: contentType}
	}
	if record.SizeBytes > 0 {
		item[attrSizeBytes] = &types.AttributeValueMemberN{Value: strconv.FormatInt(record.SizeBytes, 10)}
	}
	if !record.ExpiresAt.IsZero() {
		// DynamoDB TTL expects epoch seconds.
		item[attrExpiresAt] = &types.AttributeValueMemberN{Value: strconv.FormatInt(record.ExpiresAt.UTC().Unix(), 10)}
	}

	return item, nil
}

func fromItem(item map[string]types.AttributeValue) (port.SnapshotMetadata, error) {
	var record port.SnapshotMetadata
	var err error

	for name, dst := range map[string]*string{
		attrProject: &record.Project,
		attrStage:   &record.Stage,
		attrService: &record.Service,
		attrFormat:  &record.Format,
		attrS3Key:   &record.S3Key,
	} {
		if *dst, err = attrString(item, name); err != nil {
			return port.SnapshotMetadata{}, err
		}
	}

	capturedAtMS, err := attrInt64(item, attrCapturedAt)
	if err != nil {
		return port.SnapshotMetadata{}, err
	}

	record.URL = optionalString(item, attrURL)
	record.ContentType = optionalString(item, attrContentType)
	record.SizeBytes = optionalInt64(item, attrSizeBytes)
	record.Rows = int(optionalInt64(item, attrRows))
	record.Columns = int(optionalInt64(item, attrColumns))
	record.CapturedAt = time.UnixMilli(capturedAtMS).UTC()

	if expiresAtSeconds := optionalInt64(item, attrExpiresAt); expiresAtSeconds > 0 {
		record.ExpiresAt = time.Unix(expiresAtSeconds, 0).UTC()
	}

	return record, nil
}

func normalizeTimeRange(from, to time.Time) (int64, int64, bool, error) {
	from = from.UTC()
	to = to.UTC()
	if from.IsZero() && to.IsZero() {
		return 0, math.MaxInt64, false, nil
	}

	fromMS := int64(0)
	toMS := int64(math.MaxInt64)
	if !from.IsZero() {
		fromMS = from.UnixMilli()
	}
	if !to.IsZero() {
		toMS = to.UnixMilli()
	}

	if fromMS > toMS {
		return 0, 0, false, fmt.Errorf("from must be less than or equal to to")
	}

	return fromMS, toMS, true, nil
}

func buildPK(scope valueobject.Scope) string {
	return fmt.Sprintf("SCOPE#%s#%s#%s", scope.Project(), scope.Stage(), scope.Service())
}

func buildSK(capturedAtMS int64, format, s3Key string) string {
	return fmt.Sprintf("TS#%013d#FMT#%s#KEY#%s", capturedAtMS, format, objectHash(s3Key))
}

func buildGSI1PK(scope valueobject.Scope, format string) string {
	return buildPK(scope) + "#FMT#" + format
}

func buildGSI1SK(capturedAtMS int64, s3Key string) string {
	return fmt.Sprintf("TS#%013d#KEY#%s", capturedAtMS, objectHash(s3Key))
}

func buildSortLowerBound(tsMS int64) string {
	return fmt.Sprintf("TS#%013d#", tsMS)
}

func buildSortUpperBound(tsMS int64) string {
	return fmt.Sprintf("TS#%013d#~", tsMS)
}

func objectHash(key string) string {
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:8])
}

func encodeCursor(
	key map[string]types.AttributeValue,
	mode cursorMode,
	scopeKey, format string,
	fromMS, toMS int64,
) (string, error) {
	values := make(map[string]cursorValue, len(key))
	for attributeName, raw := range key {
		switch value := raw.(type) {
		case *types.AttributeValueMemberS:
			values[attributeName] = cursorValue{S: value.Value}
		case *types.AttributeValueMemberN:
			values[attributeName] = cursorValue{N: value.Value}
		default:
			return "", fmt.Errorf("unsupported cursor attribute type for %s", attributeName)
		}
	}

	payload := cursorPayload{
		Mode:     mode,
		ScopeKey: scopeKey,
		Format:   format,
		FromMS:   fromMS,
		ToMS:     toMS,
		Key:      values,
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(serialized), nil
}

func decodeCursor(
	cursor string,
	mode cursorMode,
	scopeKey, format string,
	fromMS, toMS int64,
) (map[string]types.AttributeValue, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(cursor))
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}

	var payload cursorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}

	if payload.Mode != mode ||
		payload.ScopeKey != scopeKey ||
		payload.Format != format ||
		payload.FromMS != fromMS ||
		payload.ToMS != toMS {
		return nil, fmt.Errorf("cursor does not match query filters")
	}

	key := make(map[string]types.AttributeValue, len(payload.Key))
	for attributeName, value := range payload.Key {
		if value.S != "" {
			key[attributeName] = &types.AttributeValueMemberS{Value: value.S}
			continue
		}
		if value.N != "" {
			key[attributeName] = &types.AttributeValueMemberN{Value: value.N}
			continue
		}
		return nil, fmt.Errorf("invalid cursor")
	}

	return key, nil
}

func attrString(item map[string]types.AttributeValue, name string) (string, error) {
	raw, ok := item[name]
	if !ok {
		return "", fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok || strings.TrimSpace(value.Value) == "" {
		return "", fmt.Errorf("invalid attribute %s", name)
	}
	return value.Value, nil
}

func optionalString(item map[string]types.AttributeValue, name string) string {
	value, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return value.Value
}

func attrInt64(item map[string]types.AttributeValue, name string) (int64, error) {
	raw, ok := item[name]
	if !ok {
		return 0, fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("invalid attribute %s", name)
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid attribute %s: %w", name, err)
	}
	return parsed, nil
}

func optionalInt64(item map[string]types.AttributeValue, name string) int64 {
	value, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
