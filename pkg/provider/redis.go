package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	json "github.com/openviz/renderboard/pkg/json"
)

const (
	keyPrefix = "rb:"
	indexSep  = "\x00"
)

// RedisProvider is a DataProvider backed by Redis. Each series lives in
// a sorted set scored by step; the run/tag index of an experiment is a
// plain set of "run\x00tag" members.
type RedisProvider struct {
	client *redis.Client
}

// NewRedis wraps an existing client. Use NewRedisFromURL when only a
// connection string is at hand.
func NewRedis(client *redis.Client) *RedisProvider {
	return &RedisProvider{client: client}
}

// NewRedisFromURL connects to the given redis URL and pings it once.
func NewRedisFromURL(ctx context.Context, url string) (*RedisProvider, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisProvider{client: client}, nil
}

func seriesKey(experimentID, pluginName, run, tag string) string {
	return keyPrefix + experimentID + ":" + pluginName + ":" + run + ":" + tag
}

func indexKey(experimentID, pluginName string) string {
	return keyPrefix + experimentID + ":" + pluginName + ":index"
}

func pluginsKey(experimentID string) string {
	return keyPrefix + experimentID + ":plugins"
}

// AddScalar appends one point and records the run/tag pair in the
// experiment index.
func (p *RedisProvider) AddScalar(ctx context.Context, experimentID, pluginName, run, tag string, d TensorDatum) error {
	member, err := json.Marshal(d)
	if err != nil {
		return err
	}
	pipe := p.client.TxPipeline()
	pipe.ZAdd(ctx, seriesKey(experimentID, pluginName, run, tag), redis.Z{
		Score:  float64(d.Step),
		Member: member,
	})
	pipe.SAdd(ctx, indexKey(experimentID, pluginName), run+indexSep+tag)
	pipe.SAdd(ctx, pluginsKey(experimentID), pluginName)
	_, err = pipe.Exec(ctx)
	return err
}

func (p *RedisProvider) ListPlugins(ctx context.Context, experimentID string) ([]string, error) {
	plugins, err := p.client.SMembers(ctx, pluginsKey(experimentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list plugins: %w", err)
	}
	return plugins, nil
}

func (p *RedisProvider) ExperimentMetadata(ctx context.Context, experimentID string) (ExperimentMetadata, error) {
	return ExperimentMetadata{Name: experimentID}, nil
}

func (p *RedisProvider) ListTensors(ctx context.Context, experimentID, pluginName string, filter *RunTagFilter) (map[string][]string, error) {
	members, err := p.client.SMembers(ctx, indexKey(experimentID, pluginName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run/tag index: %w", err)
	}
	out := make(map[string][]string)
	for _, m := range members {
		run, tag, ok := strings.Cut(m, indexSep)
		if !ok {
			continue
		}
		if !filter.matchRun(run) || !filter.matchTag(tag) {
			continue
		}
		out[run] = append(out[run], tag)
	}
	return out, nil
}

func (p *RedisProvider) ReadTensors(ctx context.Context, experimentID, pluginName string, downsample int, filter *RunTagFilter) (map[string]map[string][]TensorDatum, error) {
	index, err := p.ListTensors(ctx, experimentID, pluginName, filter)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string][]TensorDatum)
	for run, tags := range index {
		for _, tag := range tags {
			members, err := p.client.ZRangeByScore(ctx, seriesKey(experimentID, pluginName, run, tag), &redis.ZRangeBy{
				Min: "-inf",
				Max: "+inf",
			}).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to read series %s/%s: %w", run, tag, err)
			}
			series := make([]TensorDatum, 0, len(members))
			for _, m := range members {
				var d TensorDatum
				if err := json.Unmarshal([]byte(m), &d); err != nil {
					return nil, fmt.Errorf("corrupt series member in %s/%s: %w", run, tag, err)
				}
				series = append(series, d)
			}
			if out[run] == nil {
				out[run] = make(map[string][]TensorDatum)
			}
			out[run][tag] = Downsample(series, downsample)
		}
	}
	return out, nil
}
