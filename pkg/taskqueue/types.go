package taskqueue

import "encoding/json"

// Claim is a unit of work handed out by the server.
type Claim struct {
	BlockID int64
	JobID   int32
}

// ProverData is the input of one proof. Its structure belongs to the prover.
type ProverData = json.RawMessage

// EncodedProof is the output of one proof. Its structure belongs to the prover.
type EncodedProof = json.RawMessage

type proverRequest struct {
	Name      string `json:"name"`
	BlockSize int    `json:"block_size"`
}

type blockToProveResponse struct {
	Block       int64 `json:"block"`
	ProverRunID int32 `json:"prover_run_id"`
}

type workingOnRequest struct {
	ProverRunID int32 `json:"prover_run_id"`
}

type publishRequest struct {
	Block uint32       `json:"block"`
	Proof EncodedProof `json:"proof"`
}

const duplicateKeyMessage = "duplicate key"

const (
	registerPath     = "/register"
	blockToProvePath = "/block_to_prove"
	workingOnPath    = "/working_on"
	proverDataPath   = "/prover_data"
	publishPath      = "/publish"
	stoppedPath      = "/stopped"

	WorkerNameHeader = "X-Worker-Name"
)
