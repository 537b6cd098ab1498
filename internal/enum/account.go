package enum

type AccountType string

const (
	AccountTypeIMAP  AccountType = "imap"
	AccountTypeGraph AccountType = "graph"
)

func (t AccountType) String() string {
	return string(t)
}

func GetAccountType(s string) AccountType {
	return AccountType(s)
}

type ConnectionSecurity string

const (
	ConnectionSecurityNone ConnectionSecurity = "none"
	ConnectionSecurityTLS  ConnectionSecurity = "tls"
)

func (t ConnectionSecurity) String() string {
	return string(t)
}
