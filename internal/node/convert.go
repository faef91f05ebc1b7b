package node

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"snapback/internal/lockstore"
	"snapback/internal/syncqueue"
	"snapback/internal/writelock"
)

// jobsToProto converts the queue listing through its JSON form so the gRPC
// and HTTP views carry the same field names.
func jobsToProto(jobs syncqueue.Jobs) (*structpb.Struct, error) {
	raw, err := json.Marshal(jobs)
	if err != nil {
		return nil, fmt.Errorf("marshal jobs: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("convert jobs: %w", err)
	}
	return out, nil
}

func protoToJobs(pb *structpb.Struct) (syncqueue.Jobs, error) {
	var jobs syncqueue.Jobs
	raw, err := protojson.Marshal(pb)
	if err != nil {
		return jobs, fmt.Errorf("marshal jobs: %w", err)
	}
	if err := json.Unmarshal(raw, &jobs); err != nil {
		return jobs, fmt.Errorf("convert jobs: %w", err)
	}
	return jobs, nil
}

func lockStatusToProto(ls LockStatus) (*structpb.Struct, error) {
	ttl := float64(-1)
	if ls.Held && ls.TTL != lockstore.NoExpiry {
		ttl = ls.TTL.Seconds()
	}
	return structpb.NewStruct(map[string]any{
		"wallet":         ls.Wallet,
		"held":           ls.Held,
		"holder":         string(ls.Holder),
		"ttlSeconds":     ttl,
		"syncInProgress": ls.Holder.IsSync(),
	})
}

func protoToLockStatus(pb *structpb.Struct) LockStatus {
	fields := pb.GetFields()
	ls := LockStatus{
		Wallet: fields["wallet"].GetStringValue(),
		Held:   fields["held"].GetBoolValue(),
		Holder: writelock.Acquirer(fields["holder"].GetStringValue()),
	}
	if ttl := fields["ttlSeconds"].GetNumberValue(); ttl >= 0 {
		ls.TTL = time.Duration(ttl * float64(time.Second))
	} else if ls.Held {
		ls.TTL = lockstore.NoExpiry
	}
	return ls
}
