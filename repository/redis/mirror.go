package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/taskmarket/domain"
	"github.com/fastygo/taskmarket/usecase"
)

// casSnapshots writes each document only when its stored version is older.
// KEYS come in (document, version) pairs; ARGV[1] is the version and ARGV[i+1]
// the payload of the i-th pair. Versions are fixed width so string order is
// numeric order.
var casSnapshots = redislib.NewScript(`
local applied = 0
for i = 1, #KEYS, 2 do
	local current = redis.call('GET', KEYS[i + 1])
	if not current or ARGV[1] > current then
		redis.call('SET', KEYS[i], ARGV[(i + 1) / 2 + 1])
		redis.call('SET', KEYS[i + 1], ARGV[1])
		applied = applied + 1
	end
end
return applied
`)

// Mirror writes the latest snapshot of every record an event touched as a JSON
// document under mirror:<kind>:<id>, for read-only consumers. The committing
// event's timestamp is kept next to each document under <key>:version, so a
// replayed older event never overwrites a newer snapshot.
type Mirror struct {
	client *redislib.Client
	prefix string
}

func NewMirror(client *redislib.Client) *Mirror {
	return &Mirror{client: client, prefix: "mirror:"}
}

func (m *Mirror) Mirror(ctx context.Context, event domain.Event) error {
	keys, args, err := m.snapshotArgs(event)
	if err != nil || len(keys) == 0 {
		return err
	}
	if err := casSnapshots.Run(ctx, m.client, keys, args...).Err(); err != nil {
		return fmt.Errorf("mirror %s: %w", event.Name, err)
	}
	return nil
}

// snapshotArgs lays out the script's keys and arguments for event in a stable
// key order.
func (m *Mirror) snapshotArgs(event domain.Event) ([]string, []any, error) {
	docs := make(map[string]any)
	if event.Task != nil {
		docs[m.key("task", event.Task.ID)] = event.Task
	}
	if event.Dispute != nil {
		docs[m.key("dispute", event.Dispute.ID)] = event.Dispute
	}
	for i := range event.Accounts {
		a := event.Accounts[i]
		docs[m.key("account", a.ID)] = a
	}
	if len(docs) == 0 {
		return nil, nil, nil
	}

	names := make([]string, 0, len(docs))
	for key := range docs {
		names = append(names, key)
	}
	sort.Strings(names)

	keys := make([]string, 0, 2*len(names))
	args := make([]any, 0, len(names)+1)
	args = append(args, snapshotVersion(event))
	for _, key := range names {
		payload, err := json.Marshal(docs[key])
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, key, key+":version")
		args = append(args, string(payload))
	}
	return keys, args, nil
}

func (m *Mirror) key(kind, id string) string {
	return m.prefix + kind + ":" + id
}

// snapshotVersion orders events by commit time as a zero-padded decimal.
func snapshotVersion(event domain.Event) string {
	return fmt.Sprintf("%020d", event.CreatedAt.UnixNano())
}

var _ usecase.Mirror = (*Mirror)(nil)
