package domain

// ListStatus is the lifecycle state of one declared list. Every state may
// re-enter ListLoading on reload; ListError is reachable only from ListLoading.
type ListStatus string

const (
	ListUninitialized ListStatus = "uninitialized"
	ListLoading       ListStatus = "loading"
	ListReady         ListStatus = "ready"
	ListError         ListStatus = "error"
)
