package policy

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/flowshop-sim/flowshop-sim/sim"
)

// recordingPolicy answers machineID+1 and remembers what it was trained on.
type recordingPolicy struct {
	lastFeatures sim.FeatureVector
	trained      []sim.TrainingExample
	failTrain    bool
}

func (p *recordingPolicy) Decide(features sim.FeatureVector, machineID int) (int, error) {
	p.lastFeatures = features
	if machineID < 0 {
		return 0, errors.New("no such machine")
	}
	return machineID + 1, nil
}

func (p *recordingPolicy) Train(examples []sim.TrainingExample) error {
	if p.failTrain {
		return errors.New("model diverged")
	}
	p.trained = append(p.trained, examples...)
	return nil
}

func startPolicyServer(t *testing.T, p sim.DispatchPolicy) *RemotePolicy {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServePolicy(ctx, lis, p) }()

	client, err := DialRemotePolicy("passthrough:///bufnet", 2*time.Second,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Close()
		cancel()
		<-done
	})
	return client
}

func TestRemotePolicy_Decide_RoundTrip(t *testing.T) {
	// GIVEN a server wrapping a policy that answers machineID+1
	server := &recordingPolicy{}
	client := startPolicyServer(t, server)

	// WHEN the client asks for machine 2
	got, err := client.Decide(sim.FeatureVector{1, 0, 3.5}, 2)

	// THEN the answer and the features cross the wire intact
	require.NoError(t, err)
	assert.Equal(t, 3, got)
	assert.Equal(t, sim.FeatureVector{1, 0, 3.5}, server.lastFeatures)
}

func TestRemotePolicy_Decide_ServerError(t *testing.T) {
	client := startPolicyServer(t, &recordingPolicy{})
	_, err := client.Decide(sim.FeatureVector{1}, -1)
	assert.Error(t, err)
}

func TestRemotePolicy_Train_RoundTrip(t *testing.T) {
	// GIVEN a server
	server := &recordingPolicy{}
	client := startPolicyServer(t, server)

	// WHEN two examples are sent, one with history
	examples := []sim.TrainingExample{
		{Turn: 4, OrderID: 1, Features: sim.FeatureVector{1, 2}, Reward: 12, Label: sim.LabelGood},
		{Turn: 9, OrderID: 3, Features: sim.FeatureVector{0, 5},
			History: []sim.FeatureVector{{1, 2}}, Reward: -1, Label: sim.LabelBad},
	}
	require.NoError(t, client.Train(examples))

	// THEN the server received them unchanged
	require.Len(t, server.trained, 2)
	assert.Equal(t, examples[0].Features, server.trained[0].Features)
	assert.Empty(t, server.trained[0].History)
	assert.Equal(t, sim.LabelGood, server.trained[0].Label)
	assert.Equal(t, 12, server.trained[0].Reward)
	assert.Equal(t, examples[1].History, server.trained[1].History)
	assert.Equal(t, -1, server.trained[1].Reward)
	assert.Equal(t, 3, server.trained[1].OrderID)
	assert.Equal(t, 9, server.trained[1].Turn)
}

func TestRemotePolicy_Train_ServerError(t *testing.T) {
	client := startPolicyServer(t, &recordingPolicy{failTrain: true})
	err := client.Train([]sim.TrainingExample{{Features: sim.FeatureVector{1}, Label: sim.LabelGood}})
	assert.Error(t, err)
}

func TestRemotePolicy_EmptyTrainBatch(t *testing.T) {
	server := &recordingPolicy{}
	client := startPolicyServer(t, server)
	assert.NoError(t, client.Train(nil))
	assert.Empty(t, server.trained)
}
