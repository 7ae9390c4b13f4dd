package wallet

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Minimal ERC-20 surface the bot needs: balance, allowance, approve.
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"remaining","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

var parsedERC20 = mustParseERC20()

func mustParseERC20() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		panic(fmt.Sprintf("failed to parse erc20 abi: %v", err))
	}
	return parsed
}

func packBalanceOf(owner common.Address) ([]byte, error) {
	return parsedERC20.Pack("balanceOf", owner)
}

func packAllowance(owner, spender common.Address) ([]byte, error) {
	return parsedERC20.Pack("allowance", owner, spender)
}

func packApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return parsedERC20.Pack("approve", spender, amount)
}

func unpackUint256(result []byte) *big.Int {
	return new(big.Int).SetBytes(result)
}
