package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	internEmail     = "ana@aluno.br"
	supervisorEmail = "silva@empresa.br"
)

func ownTarget() Target {
	return Target{InternEmail: internEmail, SupervisorEmail: supervisorEmail, UploaderID: "u-intern"}
}

func TestAdmin_MayDoEverything(t *testing.T) {
	for a := range actionNames {
		assert.True(t, Authorize(Admin(), a, Target{}), a.String())
	}
}

func TestAnonymous_MayDoNothing(t *testing.T) {
	for a := range actionNames {
		assert.False(t, Authorize(Principal{}, a, ownTarget()), a.String())
	}
}

func TestSupervisor(t *testing.T) {
	p := SupervisorOf(supervisorEmail).WithUser("u-sup")
	other := SupervisorOf("outro@empresa.br")

	assert.True(t, Authorize(p, ViewIntern, Target{}))
	assert.True(t, Authorize(p, ViewInternship, Target{}))
	assert.True(t, Authorize(p, GenerateReport, Target{}))

	assert.False(t, Authorize(p, ManageIntern, Target{}))
	assert.False(t, Authorize(p, ManageInternship, Target{}))
	assert.False(t, Authorize(p, TransitionInternship, ownTarget()))
	assert.False(t, Authorize(p, ViewStatistics, Target{}))
	assert.False(t, Authorize(p, CreateNotification, Target{}))

	// 文档：仅限自己指导的实习
	assert.True(t, Authorize(p, UploadDocument, ownTarget()))
	assert.True(t, Authorize(p, DeleteDocument, ownTarget()))
	assert.False(t, Authorize(other, ViewDocument, ownTarget()))
	assert.False(t, Authorize(other, DeleteDocument, ownTarget()))
	// 未填导师邮箱的实习不匹配任何导师
	assert.False(t, Authorize(p, ViewDocument, Target{InternEmail: internEmail}))
}

func TestIntern(t *testing.T) {
	self := InternOf("ANA@aluno.br").WithUser("u-intern")
	stranger := InternOf("joao@aluno.br").WithUser("u-joao")

	assert.True(t, Authorize(self, ViewIntern, ownTarget()), "邮箱忽略大小写")
	assert.True(t, Authorize(self, ViewInternship, ownTarget()))
	assert.True(t, Authorize(self, ViewNotification, ownTarget()))
	assert.True(t, Authorize(self, MarkNotification, ownTarget()))
	assert.True(t, Authorize(self, UploadDocument, ownTarget()))
	assert.True(t, Authorize(self, DeleteDocument, ownTarget()))
	assert.True(t, Authorize(self, ViewAgreement, Target{}))

	assert.False(t, Authorize(stranger, ViewIntern, ownTarget()))
	assert.False(t, Authorize(stranger, MarkNotification, ownTarget()))
	assert.False(t, Authorize(stranger, UploadDocument, ownTarget()))

	// 他人上传的文档不能删除
	t2 := ownTarget()
	t2.UploaderID = "u-sup"
	assert.False(t, Authorize(self, DeleteDocument, t2))

	for _, a := range []Action{ManageIntern, ManageAgreement, ManageInternship, TransitionInternship,
		SuspendInternship, CreateNotification, DeleteNotification, ViewStatistics, GenerateReport} {
		assert.False(t, Authorize(self, a, ownTarget()), a.String())
	}
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(Admin(), ViewStatistics, Target{}))
	assert.ErrorIs(t, Check(InternOf(internEmail), ViewStatistics, Target{}), ErrPermissionDenied)
}

func TestFromRole(t *testing.T) {
	assert.Equal(t, KindAdministrator, FromRole("admin", "", "1").Kind)
	assert.Equal(t, KindSupervisor, FromRole("supervisor", supervisorEmail, "2").Kind)
	assert.Equal(t, KindIntern, FromRole("intern", internEmail, "3").Kind)
	assert.Equal(t, KindAnonymous, FromRole("root", "", "4").Kind)
}
