package memory_test

import "github.com/iho/bankledger/internal/usecase"

func usecaseFilter(owner, name, number string, limit, offset int) usecase.AccountFilter {
	return usecase.AccountFilter{OwnerID: owner, Name: name, Number: number, Limit: limit, Offset: offset}
}
