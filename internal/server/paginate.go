package server

import (
	"encoding/base64"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultPageSize = 1000

// paginate returns the indices of one page of a total-length list in
// canonical order, and the token for the next page ("" on the last page).
// The token is the base64 offset of the next item; a token that does not
// decode to a non-negative offset is InvalidArgument.
func paginate(total int, pageSize int32, pageToken string) (indices []int, nextToken string, err error) {
	ps := int(pageSize)
	if ps <= 0 {
		ps = defaultPageSize
	}

	offset := 0
	if pageToken != "" {
		decoded, err := base64.StdEncoding.DecodeString(pageToken)
		if err == nil {
			offset, err = strconv.Atoi(string(decoded))
		}
		if err != nil || offset < 0 {
			return nil, "", status.Errorf(codes.InvalidArgument, "invalid page_token %q", pageToken)
		}
	}
	if offset >= total {
		return nil, "", nil
	}

	end := min(offset+ps, total)
	indices = make([]int, end-offset)
	for i := range indices {
		indices[i] = offset + i
	}

	if end < total {
		nextToken = base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(end)))
	}
	return indices, nextToken, nil
}
