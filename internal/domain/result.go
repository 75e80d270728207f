package domain

// Compensation step names executed after an order is cancelled.
const (
	StepRefund              = "refund"
	StepRestoreStock        = "restore_stock"
	StepReleaseReservation  = "release_reservation"
	StepReverseCommission   = "reverse_commission"
	StepConfirmReservation  = "confirm_reservation"
	StepCalculateCommission = "calculate_commission"
)

// StepResult is the outcome of one best-effort sub-operation.
type StepResult struct {
	Step    string `json:"step"`
	Target  string `json:"target"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// NewStepResult records the outcome of step against target.
func NewStepResult(step, target string, err error) StepResult {
	r := StepResult{Step: step, Target: target, Success: err == nil}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// FailedSteps counts unsuccessful results.
func FailedSteps(results []StepResult) int {
	n := 0
	for _, r := range results {
		if !r.Success {
			n++
		}
	}
	return n
}

// CancellationResult is returned by an order cancellation.
type CancellationResult struct {
	Success       bool         `json:"success"`
	Order         *Order       `json:"order"`
	Refund        *Refund      `json:"refund,omitempty"`
	Message       string       `json:"message"`
	Compensations []StepResult `json:"compensations"`
}

// SweepResult summarizes an expiry sweep.
type SweepResult struct {
	Released int          `json:"released"`
	Failed   int          `json:"failed"`
	Results  []StepResult `json:"results,omitempty"`
}

// SettlementResult summarizes a payment settlement.
type SettlementResult struct {
	Order       *Order            `json:"order"`
	MarkedPaid  bool              `json:"marked_paid"`
	Steps       []StepResult      `json:"steps"`
	Commissions *CommissionResult `json:"commissions,omitempty"`
}
