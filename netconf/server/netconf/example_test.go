//nolint: goconst,gosec
package netconf

import (
	"context"
	"fmt"

	"github.com/damianoneill/ncstore/internal/ncclient"
	"github.com/damianoneill/ncstore/netconf/common"
	"github.com/damianoneill/ncstore/netconf/server/ssh"
)

type exampleServer struct{}

func (es *exampleServer) Capabilities() []string {
	return common.DefaultCapabilities
}

func (es *exampleServer) HandleRequest(req *RPCRequestMessage) *RPCReplyMessage {
	switch req.Request.XMLName.Local {
	case "get":
		return DataReply(req, `<top xmlns="urn:example:top"><sub>cvalue</sub></top>`)
	case "get-config":
		return ErrorReply(req, common.NewRPCError(common.ErrTagOperationFailed, "oops"))
	}
	return nil
}

func (es *exampleServer) Closed() {}

func ExampleNewServer() {
	sshcfg, _ := ssh.PasswordConfig("UserA", "PassA", "")
	server, _ := NewServer(context.Background(), "localhost", 0, sshcfg,
		func(sh *SessionHandler) SessionCallback {
			return &exampleServer{}
		})
	defer server.Close()

	//----------------------------

	tr, _ := ncclient.Dial(context.Background(), fmt.Sprintf("localhost:%d", server.Port()), "UserA", "PassA", ssh.Subsystem)
	ncs, _ := ncclient.NewSession(tr, nil)
	defer ncs.Close()

	reply, _ := ncs.Exec(`<get/>`)
	fmt.Println("Get:", reply.Data.Content)

	reply, _ = ncs.Exec(`<get-config><source><running/></source></get-config>`)
	fmt.Println("Get-Config:", reply.Errors[0])

	// Output: Get: <top xmlns="urn:example:top"><sub>cvalue</sub></top>
	// Get-Config: netconf rpc [error] operation-failed 'oops'
}
