package order

// Workflow bundles the order use cases behind one value for the transports.
type Workflow struct {
	Place        *PlaceOrderUseCase
	Finalize     *FinalizePaymentUseCase
	Cancel       *CancelOrderUseCase
	UpdateStatus *UpdateStatusUseCase
	MarkRefunded *MarkRefundedUseCase
	Get          *GetOrderUseCase
	ListBuyer    *ListBuyerOrdersUseCase
	ListOwner    *ListOwnerOrdersUseCase
}

func NewWorkflow(d Deps) *Workflow {
	return &Workflow{
		Place:        NewPlaceOrderUseCase(d),
		Finalize:     NewFinalizePaymentUseCase(d),
		Cancel:       NewCancelOrderUseCase(d),
		UpdateStatus: NewUpdateStatusUseCase(d),
		MarkRefunded: NewMarkRefundedUseCase(d),
		Get:          NewGetOrderUseCase(d),
		ListBuyer:    NewListBuyerOrdersUseCase(d),
		ListOwner:    NewListOwnerOrdersUseCase(d),
	}
}
