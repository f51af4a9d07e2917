package ledger

import (
	"math/big"

	"github.com/questx-lab/engagement/config"
)

type Split struct {
	App     *big.Int
	User    *big.Int
	Inviter *big.Int
}

// Total is always equal to the amount the split was calculated from.
func (s Split) Total() *big.Int {
	total := new(big.Int).Add(s.App, s.User)
	return total.Add(total, s.Inviter)
}

// CalculateSplit divides amount between the app, the user and the inviter.
// The inviter gets the remainder, so nothing is lost to rounding.
func CalculateSplit(amount *big.Int, userAndInviterPercentage, userPercentage int) Split {
	hundred := big.NewInt(100)

	app := new(big.Int).Mul(amount, big.NewInt(int64(100-userAndInviterPercentage)))
	app.Quo(app, hundred)

	pool := new(big.Int).Sub(amount, app)

	user := new(big.Int).Mul(pool, big.NewInt(int64(userPercentage)))
	user.Quo(user, hundred)

	return Split{
		App:     app,
		User:    user,
		Inviter: new(big.Int).Sub(pool, user),
	}
}

// withoutInviter applies the policy for claims which have no inviter.
func (s Split) withoutInviter(policy config.ZeroInviterPolicy) (Split, bool) {
	switch policy {
	case config.ZeroInviterToUser:
		return Split{App: s.App, User: new(big.Int).Add(s.User, s.Inviter), Inviter: big.NewInt(0)}, true
	case config.ZeroInviterToApp:
		return Split{App: new(big.Int).Add(s.App, s.Inviter), User: s.User, Inviter: big.NewInt(0)}, true
	}

	// The inviter share is kept in the pool.
	return s, false
}

func validPercentage(p int) bool {
	return p >= 0 && p <= 100
}
