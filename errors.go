package porto

import "github.com/werat/porto/rpcerror"

// The error taxonomy itself lives in rpcerror, a leaf package with no
// dependency on this one — task.Task needs the same Kind/Error types
// and this package depends on task, so the taxonomy can't live here
// without an import cycle. These aliases keep every other call site in
// this package and its callers (porto.NewError, porto.KindInvalidValue,
// ...) unchanged.
type (
	ErrorKind = rpcerror.Kind
	Error     = rpcerror.Error
)

const (
	KindSuccess              = rpcerror.KindSuccess
	KindUnknown              = rpcerror.KindUnknown
	KindInvalidValue         = rpcerror.KindInvalidValue
	KindNoSpace              = rpcerror.KindNoSpace
	KindResourceNotAvailable = rpcerror.KindResourceNotAvailable
	KindPermission           = rpcerror.KindPermission
	KindNotFound             = rpcerror.KindNotFound
	KindBusy                 = rpcerror.KindBusy
)

var (
	NewError        = rpcerror.New
	WrapError       = rpcerror.Wrap
	ReadError       = rpcerror.Read
	ErrCouldntStart = rpcerror.ErrCouldntStart
)
