package appgrpc

import (
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/blockberries/appcore"
)

// Trailer keys carrying halt details across the wire.
const (
	_haltHeightKey = "appcore-halt-height"
	_haltReasonKey = "appcore-halt-reason"
)

// toStatus maps an application error to a gRPC status. A HaltError
// becomes codes.Aborted with its height and reason in the status message
// trailer so the client can rebuild it.
func toStatus(err error) (error, metadata.MD) {
	if err == nil {
		return nil, nil
	}
	if h, ok := appcore.IsHalt(err); ok {
		md := metadata.Pairs(
			_haltHeightKey, strconv.FormatUint(h.Height, 10),
			_haltReasonKey, h.Reason,
		)
		return status.Error(codes.Aborted, h.Error()), md
	}
	if _, ok := status.FromError(err); ok {
		return err, nil
	}
	return status.Error(codes.Unknown, err.Error()), nil
}

// fromStatus rebuilds a HaltError from a codes.Aborted status.
func fromStatus(err error, trailer metadata.MD) error {
	if err == nil || status.Code(err) != codes.Aborted {
		return err
	}
	var (
		height uint64
		reason = status.Convert(err).Message()
	)
	if v := trailer.Get(_haltHeightKey); len(v) > 0 {
		height, _ = strconv.ParseUint(v[0], 10, 64)
	}
	if v := trailer.Get(_haltReasonKey); len(v) > 0 {
		reason = v[0]
	}
	return appcore.WrapHalt(err, height, reason)
}
